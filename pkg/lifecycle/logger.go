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

package lifecycle

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/rs/zerolog"
)

const otelShutdownTimeout = 10 * time.Second

// LoggerImpl implements logger.Logger. It owns the optional log file and OTel
// exporter opened for it, released by Close.
type LoggerImpl struct {
	logger zerolog.Logger
	file   *os.File
	otel   *logger.OTelWriter
}

func NewLoggerImpl(config *logger.Config) (*LoggerImpl, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	level, err := logger.ParseLevel(config)
	if err != nil {
		return nil, err
	}

	output, file, err := logger.OpenOutput(config)
	if err != nil {
		return nil, err
	}

	impl := &LoggerImpl{file: file}

	if config.OTel.Enabled {
		otelWriter, err := logger.NewOTelWriter(context.Background(), config.OTel)
		if err != nil {
			_ = impl.Close()
			return nil, err
		}

		impl.otel = otelWriter
		output = zerolog.MultiLevelWriter(output, otelWriter)
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	impl.logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Set the time format
	zerolog.TimeFieldFormat = timeFormat

	return impl, nil
}

func (l *LoggerImpl) Trace() *zerolog.Event {
	return l.logger.Trace()
}

func (l *LoggerImpl) Debug() *zerolog.Event {
	return l.logger.Debug()
}

func (l *LoggerImpl) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *LoggerImpl) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *LoggerImpl) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *LoggerImpl) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

func (l *LoggerImpl) With() zerolog.Context {
	return l.logger.With()
}

func (l *LoggerImpl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *LoggerImpl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *LoggerImpl) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// Close releases the log file, if one was opened.
// Close flushes the OTel exporter and closes the log file, if any.
func (l *LoggerImpl) Close() error {
	var errs []error

	if l.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		errs = append(errs, l.otel.Shutdown(ctx))
		cancel()

		l.otel = nil
	}

	if l.file != nil {
		errs = append(errs, l.file.Close())
		l.file = nil
	}

	return errors.Join(errs...)
}

func CreateComponentLogger(component string, config *logger.Config) (*LoggerImpl, error) {
	loggerImpl, err := NewLoggerImpl(config)
	if err != nil {
		return nil, err
	}

	loggerImpl.logger = loggerImpl.logger.With().Str("component", component).Logger()

	return loggerImpl, nil
}

// LoggingConfig returns the logging section to use. Without one, the
// environment defaults apply and every line is also written to file.
func LoggingConfig(cfg *logger.Config, debug bool, file string) *logger.Config {
	out := logger.DefaultConfig()
	if cfg != nil {
		c := *cfg
		out = &c
	} else if out.File == "" {
		out.File = file
	}

	if debug {
		out.Debug = true
	}

	return out
}
