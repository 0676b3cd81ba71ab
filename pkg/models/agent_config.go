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

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/satconnect/pkg/logger"
)

const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"

	DefaultSnipsConfigPath = "/etc/snips.toml"
	DefaultBackupPath      = "backup.txt"
	DefaultRestartScript   = "./snipsRestart.sh"
	DefaultCoreHost        = "localhost"
	DefaultMQTTPort        = 1883
	DefaultNATSPort        = 4222
	DefaultProbeAttempts   = 3
	DefaultProbeTimeout    = 2 * time.Second
)

var (
	errUnknownTransport  = errors.New("unknown transport")
	errInvalidBusPort    = errors.New("bus_port must be between 1 and 65535")
	errInvalidProbeCount = errors.New("probe_attempts must be positive")
)

// AgentConfig is the configuration shared by the satellite and core binaries.
type AgentConfig struct {
	SnipsConfig      string         `json:"snips_config"`
	BackupPath       string         `json:"backup_path"`
	RestartScript    string         `json:"restart_script"`
	Transport        string         `json:"transport"`
	BusPort          int            `json:"bus_port"`
	CoreHost         string         `json:"core_host"` // core only; the satellite asks the operator
	ProbeAttempts    int            `json:"probe_attempts"`
	ProbeTimeout     Duration       `json:"probe_timeout"`
	ExitAfterPairing *bool          `json:"exit_after_pairing,omitempty"`
	SkipRootCheck    bool           `json:"skip_root_check"`
	Logging          *logger.Config `json:"logging,omitempty"`
}

// DefaultAgentConfig returns the configuration used when no file is present.
func DefaultAgentConfig() *AgentConfig {
	cfg := &AgentConfig{}
	_ = cfg.Validate()

	return cfg
}

// Validate fills defaults and rejects impossible values.
func (c *AgentConfig) Validate() error {
	if c.SnipsConfig == "" {
		c.SnipsConfig = DefaultSnipsConfigPath
	}

	if c.BackupPath == "" {
		c.BackupPath = DefaultBackupPath
	}

	if c.RestartScript == "" {
		c.RestartScript = DefaultRestartScript
	}

	if c.CoreHost == "" {
		c.CoreHost = DefaultCoreHost
	}

	switch c.Transport {
	case "":
		c.Transport = TransportMQTT
	case TransportMQTT, TransportNATS:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", errUnknownTransport, c.Transport, TransportMQTT, TransportNATS)
	}

	if c.BusPort == 0 {
		c.BusPort = DefaultMQTTPort
		if c.Transport == TransportNATS {
			c.BusPort = DefaultNATSPort
		}
	}

	if c.BusPort < 0 || c.BusPort > 65535 {
		return errInvalidBusPort
	}

	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = DefaultProbeAttempts
	}

	if c.ProbeAttempts < 0 {
		return errInvalidProbeCount
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = Duration(DefaultProbeTimeout)
	}

	if c.ExitAfterPairing == nil {
		exit := true
		c.ExitAfterPairing = &exit
	}

	return nil
}
