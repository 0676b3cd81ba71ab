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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/satconnect/cmd/core/app"
	"github.com/carverauto/satconnect/pkg/cli"
	"github.com/carverauto/satconnect/pkg/lifecycle"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrHelp) {
			os.Exit(0)
		}

		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(lifecycle.ExitCode(err))
	}
}

func run() error {
	opts, err := cli.ParseCoreFlags(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}

	return app.Run(context.Background(), opts)
}
