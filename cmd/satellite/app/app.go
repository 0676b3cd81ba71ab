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

// Package app wires the satellite binary: interactive pairing with a core,
// disconnection, and restoring the configuration backup.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/satconnect/pkg/backup"
	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/cli"
	"github.com/carverauto/satconnect/pkg/config"
	"github.com/carverauto/satconnect/pkg/lifecycle"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/probe"
	"github.com/carverauto/satconnect/pkg/prompt"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/satellite"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

const (
	component      = "satellite"
	defaultLogFile = "satlogs.log"
)

// Run boots the satellite in the mode selected by opts.
func Run(ctx context.Context, opts *cli.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.NewConfig(nil).LoadAgentConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	if opts.SnipsConfig != "" {
		cfg.SnipsConfig = opts.SnipsConfig
	}

	mainLogger, err := lifecycle.CreateComponentLogger(component, lifecycle.LoggingConfig(cfg.Logging, opts.Debug, defaultLogFile))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := mainLogger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		}
	}()

	if !cfg.SkipRootCheck {
		if err = cli.CheckRights(); err != nil {
			return err
		}
	}

	if err = restart.EnsureExecutable(cfg.RestartScript); err != nil {
		mainLogger.Warn().Err(err).Str("script", cfg.RestartScript).Msg("Could not make the restart script executable")
	}

	s := &session{
		cfg:       cfg,
		opts:      opts,
		store:     backup.NewStore(cfg.SnipsConfig, cfg.BackupPath, mainLogger),
		restarter: restart.NewScript(cfg.RestartScript, mainLogger),
		styles:    cli.NewLogStyles(),
		logger:    mainLogger,
	}

	switch opts.Mode {
	case cli.ModeRestore:
		return lifecycle.Run(ctx, mainLogger, s.restoreBackup)
	case cli.ModeDisconnect:
		return lifecycle.Run(ctx, mainLogger, s.disconnect)
	default:
		return lifecycle.Run(ctx, mainLogger, s.pair)
	}
}

type session struct {
	cfg       *models.AgentConfig
	opts      *cli.Options
	store     *backup.Store
	restarter restart.Restarter
	styles    cli.LogStyles
	logger    logger.Logger
}

func (s *session) pair(ctx context.Context) error {
	agent, err := s.newAgent()
	if err != nil {
		return err
	}

	err = agent.Run(ctx)
	switch {
	case err == nil:
		s.styles.Banner(os.Stdout, s.styles.Success, "OK", "Paired with "+agent.Session().CoreAddress)
	case errors.Is(err, satellite.ErrPairingAborted):
		s.styles.Banner(os.Stdout, s.styles.Error, "ERROR", "The core could not register this satellite, configuration restored")
	}

	return err
}

func (s *session) disconnect(ctx context.Context) error {
	agent, err := s.newAgent()
	if err != nil {
		return err
	}

	err = agent.Disconnect(ctx)
	if errors.Is(err, satellite.ErrNotPaired) {
		s.styles.Banner(os.Stdout, s.styles.Warning, "WARN", "This satellite is not paired with any core")

		return nil
	}

	if err != nil {
		return err
	}

	s.styles.Banner(os.Stdout, s.styles.Success, "OK", "Disconnected")

	return nil
}

func (s *session) restoreBackup(ctx context.Context) error {
	if err := s.store.Restore(); err != nil {
		if errors.Is(err, backup.ErrNoBackup) {
			return fmt.Errorf("nothing to restore at %s: %w", s.store.Path(), err)
		}

		return err
	}

	return s.restarter.Restart(ctx)
}

// newAgent prepares the backup and loads the document before any mutation.
func (s *session) newAgent() (*satellite.Agent, error) {
	if s.opts.RemoveBackup {
		if _, err := s.store.Discard(); err != nil {
			return nil, err
		}
	}

	if _, err := s.store.Ensure(); err != nil {
		return nil, err
	}

	doc, err := snipsconf.Load(s.cfg.SnipsConfig)
	if err != nil {
		return nil, err
	}

	dialer, err := bus.NewDialer(s.cfg.Transport, s.cfg.BusPort, component, s.logger)
	if err != nil {
		return nil, err
	}

	return satellite.NewAgent(satellite.Config{
		Document:  doc,
		Dialer:    dialer,
		Prober:    probe.NewICMPProber(s.cfg.ProbeAttempts, time.Duration(s.cfg.ProbeTimeout), s.logger),
		Prompter:  prompt.ForTerminal(os.Stdin, os.Stdout),
		Restarter: s.restarter,
		BusPort:   s.cfg.BusPort,
		Logger:    s.logger,
	})
}
