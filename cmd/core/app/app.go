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

// Package app wires the core binary: it registers satellites that pair with
// this host and restarts the local Snips services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/satconnect/pkg/backup"
	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/cli"
	"github.com/carverauto/satconnect/pkg/config"
	"github.com/carverauto/satconnect/pkg/core"
	"github.com/carverauto/satconnect/pkg/lifecycle"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

const (
	component      = "core"
	defaultLogFile = "serverlogs.log"
)

// Run boots the core in the mode selected by opts.
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

	restarter := restart.NewScript(cfg.RestartScript, mainLogger)
	store := backup.NewStore(cfg.SnipsConfig, cfg.BackupPath, mainLogger)

	if opts.Mode == cli.ModeRestore {
		return lifecycle.Run(ctx, mainLogger, func(ctx context.Context) error {
			return restoreBackup(ctx, store, restarter)
		})
	}

	return serve(ctx, cfg, opts, store, restarter, mainLogger)
}

func serve(
	ctx context.Context,
	cfg *models.AgentConfig,
	opts *cli.Options,
	store *backup.Store,
	restarter restart.Restarter,
	log logger.Logger) error {
	styles := cli.NewLogStyles()

	if opts.RemoveBackup {
		if _, err := store.Discard(); err != nil {
			return err
		}
	}

	if _, err := store.Ensure(); err != nil {
		return err
	}

	doc, err := snipsconf.Load(cfg.SnipsConfig)
	if err != nil {
		return err
	}

	dialer, err := bus.NewDialer(cfg.Transport, cfg.BusPort, component, log)
	if err != nil {
		return err
	}

	agent, err := core.NewAgent(core.Config{
		Document:         doc,
		Restarter:        restarter,
		Dialer:           dialer,
		Host:             cfg.CoreHost,
		ExitAfterPairing: *cfg.ExitAfterPairing,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	go advertise(ctx, agent.Ready(), styles, log)

	if err = lifecycle.Run(ctx, log, agent.Run); err != nil {
		return err
	}

	styles.Banner(os.Stdout, styles.Success, "OK", "Satellite registered")

	return nil
}

// advertise prints the address satellites should dial once the core listens.
func advertise(ctx context.Context, ready <-chan struct{}, styles cli.LogStyles, log logger.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-ready:
	}

	ip, err := cli.LocalIP()
	if err != nil {
		log.Warn().Err(err).Msg("Could not determine the local IP address")
		return
	}

	styles.Banner(os.Stdout, styles.Info, "INFO", "Core ip: "+ip)
}

func restoreBackup(ctx context.Context, store *backup.Store, restarter restart.Restarter) error {
	if err := store.Restore(); err != nil {
		if errors.Is(err, backup.ErrNoBackup) {
			return fmt.Errorf("nothing to restore at %s: %w", store.Path(), err)
		}

		return err
	}

	return restarter.Restart(ctx)
}
