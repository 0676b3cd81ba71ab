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

package satellite

import (
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
)

// Session is the state of one pairing attempt.
type Session struct {
	DesiredName string
	CoreAddress string
	Phase       models.Phase
}

// Indicator is told about every phase transition, e.g. to drive status LEDs.
type Indicator interface {
	PhaseChanged(from, to models.Phase)
}

type logIndicator struct {
	logger logger.Logger
}

func (l logIndicator) PhaseChanged(from, to models.Phase) {
	l.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Phase changed")
}
