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

package cli

import (
	"fmt"
	"io"
)

func satelliteUsage(w io.Writer) func() {
	return func() {
		_, _ = fmt.Fprint(w, `Usage: satellite [options]

Pairs this device with a Snips core. Run "core" on the main device first.

Options:
  -config string        path to the satellite JSON configuration
  -snips-config string  path to snips.toml (overrides the configuration)
  -disconnect           unbind this satellite from its core
  -remove-backup        discard the configuration backup before pairing
  -restore-backup       restore the configuration backup, restart Snips and exit
  -debug                enable debug logging

Examples:
  sudo satellite
  sudo satellite -disconnect
  sudo satellite -restore-backup
`)
	}
}

func coreUsage(w io.Writer) func() {
	return func() {
		_, _ = fmt.Fprint(w, `Usage: core [options]

Answers pairing requests from satellites on the local bus.

Options:
  -config string        path to the core JSON configuration
  -snips-config string  path to snips.toml (overrides the configuration)
  -remove-backup        discard the configuration backup before serving
  -restore-backup       restore the configuration backup, restart Snips and exit
  -debug                enable debug logging

Examples:
  sudo core
  sudo core -restore-backup
`)
	}
}
