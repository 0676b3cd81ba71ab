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
	"os/signal"
	"syscall"

	"github.com/carverauto/satconnect/pkg/logger"
)

// ErrInterrupted is returned by Run when the operator stopped the process.
var ErrInterrupted = errors.New("interrupted by operator")

// Runnable is a blocking unit of work that honours context cancellation.
type Runnable func(ctx context.Context) error

// Run executes fn until it returns or SIGINT/SIGTERM arrives. On a signal the
// context handed to fn is cancelled and Run returns ErrInterrupted; in-flight
// bus messages are not drained.
func Run(ctx context.Context, log logger.Logger, fn Runnable) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)

	go func() {
		errCh <- fn(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		<-errCh

		return ErrInterrupted
	}
}

// ExitCode maps the error returned by Run to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
