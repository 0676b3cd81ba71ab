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

package lifecycle_test

import (
	"github.com/carverauto/satconnect/pkg/lifecycle"
	"github.com/carverauto/satconnect/pkg/logger"
)

func ExampleCreateComponentLogger() {
	log, err := lifecycle.CreateComponentLogger("satellite", &logger.Config{
		Level:  "debug",
		Output: "stdout",
		File:   "satlogs.log",
	})
	if err != nil {
		panic(err)
	}

	defer func() { _ = log.Close() }()

	log.Info().Str("name", "kitchen@mqtt").Msg("Starting up Snips SatConnect")
}
