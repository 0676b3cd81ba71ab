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

import "github.com/charmbracelet/lipgloss"

// Mode selects what a binary does after startup.
type Mode string

const (
	ModePair       Mode = "pair"
	ModeServe      Mode = "serve"
	ModeRestore    Mode = "restore-backup"
	ModeDisconnect Mode = "disconnect"
)

// Options holds the parsed command line of either binary.
type Options struct {
	Mode         Mode
	ConfigPath   string
	SnipsConfig  string
	RemoveBackup bool
	Debug        bool
	Args         []string
}

// LogStyles defines styles for operator-facing console messages.
type LogStyles struct {
	Info, Success, Warning, Error lipgloss.Style
}
