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

package bus

import (
	"errors"
	"fmt"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
)

var errUnknownTransport = errors.New("unknown bus transport")

// NewDialer returns the Dialer for the configured transport.
func NewDialer(transport string, port int, role string, log logger.Logger) (Dialer, error) {
	switch transport {
	case models.TransportMQTT, "":
		return NewMQTTDialer(port, role, log), nil
	case models.TransportNATS:
		return NewNATSDialer(port, role, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTransport, transport)
	}
}
