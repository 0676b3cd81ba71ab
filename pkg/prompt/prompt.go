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

// Package prompt collects operator input for the satellite pairing flow.
// Providers return raw answers; validation stays with the caller.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned when the operator abandons a prompt.
var ErrCancelled = fmt.Errorf("prompt cancelled by operator: %w", context.Canceled)

const (
	AddressQuestion = `Please enter the core ip address (you can get it by starting "core" on the main device): `
	NameQuestion    = "Please name this satellite: "
	ReplaceQuestion = "I am replacing an old device (Y) / No, change the satellite name (N): "
)

// Provider asks the operator for pairing input. Every call blocks until an
// answer arrives or ctx is cancelled.
type Provider interface {
	PromptForAddress(ctx context.Context) (string, error)
	PromptForName(ctx context.Context) (string, error)
	PromptForReplaceDecision(ctx context.Context) (string, error)
}

type lineResult struct {
	text string
	err  error
}

// Line reads answers line by line, for pipes and dumb terminals.
type Line struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan lineResult
}

// NewLine returns a Line provider reading from in and writing questions to out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: in, out: out, lines: make(chan lineResult)}
}

func (l *Line) PromptForAddress(ctx context.Context) (string, error) {
	return l.ask(ctx, AddressQuestion)
}

func (l *Line) PromptForName(ctx context.Context) (string, error) {
	return l.ask(ctx, NameQuestion)
}

func (l *Line) PromptForReplaceDecision(ctx context.Context) (string, error) {
	return l.ask(ctx, ReplaceQuestion)
}

// The reader goroutine outlives a cancelled prompt; the next prompt picks up
// the line it was waiting for.
func (l *Line) start() {
	go func() {
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			l.lines <- lineResult{text: scanner.Text()}
		}

		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}

		l.lines <- lineResult{err: err}
		close(l.lines)
	}()
}

func (l *Line) ask(ctx context.Context, question string) (string, error) {
	l.once.Do(l.start)

	if _, err := io.WriteString(l.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return "", io.EOF
			}

			return "", fmt.Errorf("read answer: %w", res.err)
		}

		return strings.TrimSpace(res.text), nil
	}
}
