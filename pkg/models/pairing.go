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

package models

// Bus topics of the pairing protocol. Payloads are UTF-8 JSON.
const (
	TopicCheckAvailability = "satConnect/server/checkAvailability"
	TopicNameAvailable     = "satConnect/satellites/available"
	TopicNameNotAvailable  = "satConnect/satellites/notAvailable"
	TopicAddSatellite      = "satConnect/server/addSatellite"
	TopicConfUpdated       = "satConnect/server/confUpdated"
	TopicConfUpdateFailed  = "satConnect/server/confUpdateFailed"
	TopicDisconnect        = "satConnect/server/disconnect"
)

// SatelliteTopics are the session topics a satellite subscribes to before publishing.
func SatelliteTopics() []string {
	return []string{
		TopicNameNotAvailable,
		TopicNameAvailable,
		TopicConfUpdated,
		TopicConfUpdateFailed,
	}
}

// CoreTopics are the request topics a core answers.
func CoreTopics() []string {
	return []string{
		TopicCheckAvailability,
		TopicAddSatellite,
		TopicDisconnect,
	}
}

// NameRequest is the payload of checkAvailability, addSatellite and disconnect.
type NameRequest struct {
	Name string `json:"name"`
}

// Empty is the payload of every core reply.
type Empty struct{}

// Phase is the position of a satellite pairing session in its state machine.
type Phase string

const (
	PhaseAwaitCoreAddress  Phase = "await_core_address"
	PhaseAwaitBusConnect   Phase = "await_bus_connect"
	PhaseAwaitName         Phase = "await_name"
	PhaseAwaitAvailability Phase = "await_availability"
	PhaseConfirmReplace    Phase = "confirm_replace"
	PhaseAwaitConfigAck    Phase = "await_config_ack"
	PhaseRestarting        Phase = "restarting"
	PhaseDone              Phase = "done"
	PhaseAborted           Phase = "aborted"
)

// Terminal reports whether no further transition is possible from p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseAborted
}
