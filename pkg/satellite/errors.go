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

package satellite

import "errors"

var (
	// ErrPairingAborted is returned when the core reported that it could not
	// register this satellite. The local binding has been rolled back.
	ErrPairingAborted = errors.New("core failed to register the satellite, pairing aborted")
	// ErrNotPaired is returned by Disconnect when no binding is configured.
	ErrNotPaired = errors.New("this satellite is not paired with a core")

	errMissingDependency = errors.New("missing satellite dependency")
	errBusLost           = errors.New("bus connection lost")
)
