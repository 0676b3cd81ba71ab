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

// Package restart runs the external script that restarts the local Snips services.
package restart

//go:generate mockgen -destination=mock_restart.go -package=restart github.com/carverauto/satconnect/pkg/restart Restarter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/carverauto/satconnect/pkg/logger"
)

var (
	// ErrRestartFailed wraps a non-zero exit or a script that could not start.
	ErrRestartFailed = errors.New("service restart failed")
)

const executableBits = 0o111

// Restarter restarts the local services and blocks until they are back.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Script runs a restart script and waits for it to exit.
type Script struct {
	Path   string
	Logger logger.Logger
}

// NewScript returns a Restarter running the script at path.
func NewScript(path string, log logger.Logger) *Script {
	return &Script{Path: path, Logger: log}
}

func (s *Script) Restart(ctx context.Context) error {
	s.Logger.Info().Str("script", s.Path).Msg("Restarting local Snips")

	out, err := exec.CommandContext(ctx, s.Path).CombinedOutput()
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		s.Logger.Debug().Str("output", trimmed).Msg("Restart script output")
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRestartFailed, s.Path, err)
	}

	return nil
}

// EnsureExecutable adds the execute bits to path, like chmod +x.
func EnsureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	mode := info.Mode().Perm()
	if mode&executableBits == executableBits {
		return nil
	}

	if err := os.Chmod(path, mode|executableBits); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	return nil
}
