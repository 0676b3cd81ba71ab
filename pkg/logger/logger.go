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

// Package logger provides JSON structured logging using zerolog. Loggers are
// built per component by pkg/lifecycle and injected; there is no global logger.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
	// File, when set, receives a copy of every line. It is truncated when opened.
	File string     `json:"file,omitempty" yaml:"file,omitempty"`
	OTel OTelConfig `json:"otel" yaml:"otel"`
}

// OpenOutput resolves the console stream and the optional log file of config.
// The returned file is nil when config.File is empty; the caller owns it.
func OpenOutput(config *Config) (io.Writer, *os.File, error) {
	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	if config.File == "" {
		return output, nil, nil
	}

	file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", config.File, err)
	}

	return zerolog.MultiLevelWriter(output, file), file, nil
}

// ParseLevel returns the zerolog level selected by config.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}
