/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snipsconf

import "errors"

var (
	// ErrConfigNotFound is returned when the Snips configuration file is absent.
	// Nothing can be paired without it, so callers treat it as fatal.
	ErrConfigNotFound = errors.New("snips configuration file not found")
	// ErrMalformed wraps TOML syntax errors.
	ErrMalformed = errors.New("malformed snips configuration")
	// ErrNotATable is returned when a section name holds a scalar or an array.
	ErrNotATable = errors.New("section is not a table")
	// ErrUnexpectedType is returned when a key holds a value of the wrong TOML type.
	ErrUnexpectedType = errors.New("unexpected value type")
	// ErrEmptyName is returned for satellite names that are empty after trimming.
	ErrEmptyName = errors.New("satellite name cannot be empty")
	// ErrReservedName is returned for the name of the core's own audio endpoint.
	ErrReservedName = errors.New("satellite name is reserved")
)
