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

package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaPink       = "#FF79C6"
	draculaComment    = "#6272A4"
)

const inputWidth = 48

// TUI asks each question in a small bubbletea program with a text input.
type TUI struct {
	in  io.Reader
	out io.Writer
}

// NewTUI returns a terminal UI provider. in and out must be a terminal.
func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{in: in, out: out}
}

func (t *TUI) PromptForAddress(ctx context.Context) (string, error) {
	return t.ask(ctx, AddressQuestion, "192.168.1.10")
}

func (t *TUI) PromptForName(ctx context.Context) (string, error) {
	return t.ask(ctx, NameQuestion, "kitchen")
}

func (t *TUI) PromptForReplaceDecision(ctx context.Context) (string, error) {
	return t.ask(ctx, ReplaceQuestion, "y/n")
}

func (t *TUI) ask(ctx context.Context, question, placeholder string) (string, error) {
	p := tea.NewProgram(newModel(question, placeholder),
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)

	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return "", fmt.Errorf("run prompt: %w", err)
	}

	m, ok := final.(*model)
	if !ok || m.cancelled {
		return "", ErrCancelled
	}

	return m.answer, nil
}

type model struct {
	question  string
	input     textinput.Model
	answer    string
	done      bool
	cancelled bool
	styles    struct{ question, help lipgloss.Style }
}

func newModel(question, placeholder string) *model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.Width = inputWidth
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	m := &model{question: strings.TrimSpace(question), input: ti}
	m.styles.question = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPink)).Bold(true)
	m.styles.help = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	return m
}

func (*model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // other keys go to the text input
		switch keyMsg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.answer = strings.TrimSpace(m.input.Value())
			m.done = true

			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m *model) View() string {
	if m.done || m.cancelled {
		return ""
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.question.Render(m.question),
		m.input.View(),
		m.styles.help.Render("enter to confirm, esc to cancel"),
	) + "\n"
}
