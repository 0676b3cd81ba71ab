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

	"github.com/charmbracelet/lipgloss"
)

// Dracula theme colors.
const (
	draculaCyan   = "#8BE9FD"
	draculaGreen  = "#50FA7B"
	draculaRed    = "#FF5555"
	draculaYellow = "#F1FA8C"
)

// NewLogStyles returns the console styles used by both binaries.
func NewLogStyles() LogStyles {
	return LogStyles{
		Info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
	}
}

// Banner prints a styled line such as "[INFO] Core ip: 192.168.1.10".
func (s LogStyles) Banner(w io.Writer, style lipgloss.Style, tag, msg string) {
	_, _ = fmt.Fprintln(w, style.Render(fmt.Sprintf("[%s] %s", tag, msg)))
}
