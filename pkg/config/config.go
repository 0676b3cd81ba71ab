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

// Package config loads the satconnect tool configuration from a JSON file or
// from SATCONNECT_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/rs/zerolog"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	// ErrConfigFileMissing is returned by the file loader when the path does not exist.
	ErrConfigFileMissing = errors.New("config file does not exist")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	defaultEnvPrefix = "SATCONNECT_"
)

// ConfigLoader fills dst from some source identified by path.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configuration structs that can check themselves.
type Validator interface {
	Validate() error
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a new Config instance with a default file loader and logger.
// If logger is nil, creates a basic logger for config loading.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
	}
}

// basicLogger implements a simple logger for config loading without circular imports
type basicLogger struct {
	logger zerolog.Logger
}

func createBasicLogger() logger.Logger {
	zlog := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	return &basicLogger{logger: zlog}
}

func (b *basicLogger) Trace() *zerolog.Event { return b.logger.Trace() }
func (b *basicLogger) Debug() *zerolog.Event { return b.logger.Debug() }
func (b *basicLogger) Info() *zerolog.Event  { return b.logger.Info() }
func (b *basicLogger) Warn() *zerolog.Event  { return b.logger.Warn() }
func (b *basicLogger) Error() *zerolog.Event { return b.logger.Error() }
func (b *basicLogger) Fatal() *zerolog.Event { return b.logger.Fatal() }
func (b *basicLogger) With() zerolog.Context { return b.logger.With() }

func (b *basicLogger) WithComponent(component string) zerolog.Logger {
	return b.logger.With().Str("component", component).Logger()
}

func (b *basicLogger) SetLevel(level zerolog.Level) {
	b.logger = b.logger.Level(level)
}

func (b *basicLogger) SetDebug(debug bool) {
	if debug {
		b.SetLevel(zerolog.DebugLevel)
	} else {
		b.SetLevel(zerolog.InfoLevel)
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration from the source selected by CONFIG_SOURCE and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	loader, err := c.loaderFromEnv()
	if err != nil {
		return err
	}

	if err := loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	return ValidateConfig(cfg)
}

func (c *Config) loaderFromEnv() (ConfigLoader, error) {
	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	switch source {
	case configSourceEnv:
		prefix := os.Getenv("CONFIG_ENV_PREFIX")
		if prefix == "" {
			prefix = defaultEnvPrefix
		}

		return NewEnvConfigLoader(c.logger, prefix), nil
	case configSourceFile, "":
		return c.defaultLoader, nil
	default:
		return nil, fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}
}

// LoadAgentConfig loads the tool configuration at path. A missing file is not an
// error: the defaults are returned and a debug line is logged.
func (c *Config) LoadAgentConfig(ctx context.Context, path string) (*models.AgentConfig, error) {
	cfg := &models.AgentConfig{}

	err := c.LoadAndValidate(ctx, path, cfg)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, ErrConfigFileMissing):
		c.logger.Debug().Str("path", path).Msg("No tool configuration file, using defaults")

		return models.DefaultAgentConfig(), nil
	default:
		return nil, err
	}
}
