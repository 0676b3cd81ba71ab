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

// Package satellite drives the pairing of a satellite device with a core:
// address acquisition, bus connection, name negotiation, local binding and
// restart, plus the disconnect flow.
package satellite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/probe"
	"github.com/carverauto/satconnect/pkg/prompt"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

// Config wires an Agent to its collaborators.
type Config struct {
	Document  *snipsconf.Document
	Dialer    bus.Dialer
	Prober    probe.Prober
	Prompter  prompt.Provider
	Restarter restart.Restarter
	Indicator Indicator
	// BusPort is written into the binding as the core's bus endpoint.
	BusPort int
	Logger  logger.Logger
}

// Agent runs pairing sessions. It is the only reader of its bus connection
// and the only writer of its document, so no locking is needed.
type Agent struct {
	doc       *snipsconf.Document
	dialer    bus.Dialer
	prober    probe.Prober
	prompter  prompt.Provider
	restarter restart.Restarter
	indicator Indicator
	busPort   int
	logger    logger.Logger

	session  Session
	conn     bus.Conn
	snapshot snipsconf.BindingSnapshot
}

// NewAgent validates cfg and returns an Agent.
func NewAgent(cfg Config) (*Agent, error) {
	switch {
	case cfg.Document == nil:
		return nil, fmt.Errorf("%w: document", errMissingDependency)
	case cfg.Dialer == nil:
		return nil, fmt.Errorf("%w: dialer", errMissingDependency)
	case cfg.Prober == nil:
		return nil, fmt.Errorf("%w: prober", errMissingDependency)
	case cfg.Prompter == nil:
		return nil, fmt.Errorf("%w: prompter", errMissingDependency)
	case cfg.Restarter == nil:
		return nil, fmt.Errorf("%w: restarter", errMissingDependency)
	case cfg.Logger == nil:
		return nil, fmt.Errorf("%w: logger", errMissingDependency)
	}

	port := cfg.BusPort
	if port == 0 {
		port = models.DefaultMQTTPort
	}

	indicator := cfg.Indicator
	if indicator == nil {
		indicator = logIndicator{logger: cfg.Logger}
	}

	return &Agent{
		doc:       cfg.Document,
		dialer:    cfg.Dialer,
		prober:    cfg.Prober,
		prompter:  cfg.Prompter,
		restarter: cfg.Restarter,
		indicator: indicator,
		busPort:   port,
		logger:    cfg.Logger,
		session:   Session{Phase: models.PhaseAwaitCoreAddress},
	}, nil
}

// Session returns a copy of the current session.
func (a *Agent) Session() Session {
	return a.session
}

// Run performs one pairing session and returns when it reaches a terminal
// phase or ctx is cancelled. A nil error means the satellite is paired and
// restarted.
func (a *Agent) Run(ctx context.Context) error {
	defer a.closeConn()

	if err := a.repairSections(); err != nil {
		return err
	}

	a.session = Session{Phase: models.PhaseAwaitCoreAddress}

	for !a.session.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := a.step(ctx); err != nil {
			return err
		}
	}

	if a.session.Phase == models.PhaseAborted {
		return ErrPairingAborted
	}

	a.logger.Info().Msg("All done! This satellite is now connected and should respond.")

	return nil
}

func (a *Agent) step(ctx context.Context) error {
	switch a.session.Phase {
	case models.PhaseAwaitCoreAddress:
		return a.acquireAddress(ctx)
	case models.PhaseAwaitBusConnect:
		return a.connect(ctx)
	case models.PhaseAwaitName:
		return a.proposeName(ctx)
	case models.PhaseConfirmReplace:
		return a.confirmReplace(ctx)
	case models.PhaseAwaitAvailability, models.PhaseAwaitConfigAck:
		return a.await(ctx)
	case models.PhaseRestarting:
		return a.restart(ctx)
	default:
		return fmt.Errorf("unexpected phase %q", a.session.Phase)
	}
}

func (a *Agent) setPhase(to models.Phase) {
	from := a.session.Phase
	a.session.Phase = to
	a.indicator.PhaseChanged(from, to)
}

func (a *Agent) repairSections() error {
	missing, err := snipsconf.EnsureSatelliteSections(a.doc)
	if err != nil {
		return fmt.Errorf("prepare snips configuration: %w", err)
	}

	for _, path := range missing {
		a.logger.Warn().Str("key", path).Msg("Missing configuration in snips configuration file")
	}

	return nil
}

func (a *Agent) acquireAddress(ctx context.Context) error {
	addr, err := a.prompter.PromptForAddress(ctx)
	if err != nil {
		return err
	}

	addr = strings.TrimSpace(addr)
	if addr == "" {
		a.logger.Warn().Msg("Core ip cannot be empty")
		return nil
	}

	a.logger.Info().Str("core_address", addr).Msg("Checking ip address")

	if err := a.prober.Probe(ctx, addr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		a.logger.Warn().Err(err).Str("core_address", addr).Msg("Ip address is not alive on your current network")

		return nil
	}

	a.logger.Info().Str("core_address", addr).Msg("Ip address is alive")
	a.session.CoreAddress = addr
	a.setPhase(models.PhaseAwaitBusConnect)

	return nil
}

func (a *Agent) connect(ctx context.Context) error {
	a.closeConn()

	conn, err := a.dialer.Dial(ctx, a.session.CoreAddress)
	if err == nil {
		err = conn.Subscribe(ctx, models.SatelliteTopics())
		if err != nil {
			_ = conn.Close()
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		a.logger.Error().Err(err).Str("core_address", a.session.CoreAddress).
			Msg("Couldn't connect to the bus on core ip")
		a.resetAddress()

		return nil
	}

	a.conn = conn
	a.setPhase(models.PhaseAwaitName)

	return nil
}

func (a *Agent) proposeName(ctx context.Context) error {
	for a.session.DesiredName == "" {
		name, err := a.prompter.PromptForName(ctx)
		if err != nil {
			return err
		}

		name = strings.TrimSpace(name)
		if err := snipsconf.ValidateName(name); err != nil {
			if errors.Is(err, snipsconf.ErrReservedName) {
				a.logger.Warn().Str("name", name).Msg("This name is used by the core itself, please choose another one")
			} else {
				a.logger.Warn().Msg("Satellite name cannot be empty")
			}

			continue
		}

		a.session.DesiredName = name
	}

	a.logger.Info().Str("name", a.session.DesiredName).Msg("Checking satellite name availability")

	if err := a.publishName(ctx, models.TopicCheckAvailability); err != nil {
		return a.busFailure(ctx, err)
	}

	a.setPhase(models.PhaseAwaitAvailability)

	return nil
}

func (a *Agent) confirmReplace(ctx context.Context) error {
	for {
		answer, err := a.prompter.PromptForReplaceDecision(ctx)
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y":
			return a.applyBinding(ctx)
		case "n":
			a.session.DesiredName = ""
			a.setPhase(models.PhaseAwaitName)

			return nil
		default:
			a.logger.Warn().Msg("Please use Y or N")
		}
	}
}

func (a *Agent) await(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg, ok := <-a.conn.Messages():
		if !ok {
			return a.busFailure(ctx, errBusLost)
		}

		return a.handle(ctx, msg)
	}
}

func (a *Agent) handle(ctx context.Context, msg bus.Message) error {
	phase := a.session.Phase

	switch {
	case phase == models.PhaseAwaitAvailability && msg.Topic == models.TopicNameNotAvailable:
		a.logger.Warn().Str("name", a.session.DesiredName).Msg("The satellite name you chose is already taken.")
		a.logger.Warn().Msg("Are you replacing an existing device? If not, continuing may result in collisions!")
		a.setPhase(models.PhaseConfirmReplace)

		return nil
	case phase == models.PhaseAwaitAvailability && msg.Topic == models.TopicNameAvailable:
		a.logger.Info().Str("name", a.session.DesiredName).Msg("The satellite name is available, proceeding with configuration")
		return a.applyBinding(ctx)
	case phase == models.PhaseAwaitConfigAck && msg.Topic == models.TopicConfUpdated:
		a.logger.Info().Msg("Main device updated and restarted")
		a.setPhase(models.PhaseRestarting)

		return nil
	case phase == models.PhaseAwaitConfigAck && msg.Topic == models.TopicConfUpdateFailed:
		a.logger.Error().Msg("Unfortunately we were unable to update the main device, aborting")

		if err := a.rollback(); err != nil {
			return err
		}

		a.setPhase(models.PhaseAborted)

		return nil
	default:
		a.logger.Debug().Str("topic", msg.Topic).Str("phase", string(phase)).Msg("Ignoring unexpected message")
		return nil
	}
}

// applyBinding persists the binding and asks the core to register it. The
// previous binding is kept so a rejection can be undone.
func (a *Agent) applyBinding(ctx context.Context) error {
	a.logger.Info().Msg("Writing local toml configuration...")

	a.snapshot = snipsconf.SnapshotBinding(a.doc)

	coreAddress := snipsconf.CoreAddress(a.session.CoreAddress, a.busPort)
	if _, err := snipsconf.SetSatelliteBinding(a.doc, coreAddress, a.session.DesiredName); err != nil {
		return fmt.Errorf("set binding: %w", err)
	}

	if err := a.doc.Save(); err != nil {
		_ = a.snapshot.Restore(a.doc)
		return fmt.Errorf("save snips configuration: %w", err)
	}

	a.logger.Info().Str("name", a.session.DesiredName).Msg("Sending core configuration...")

	if err := a.publishName(ctx, models.TopicAddSatellite); err != nil {
		a.setPhase(models.PhaseAwaitConfigAck)
		return a.busFailure(ctx, err)
	}

	a.setPhase(models.PhaseAwaitConfigAck)

	return nil
}

// rollback restores the binding that existed before applyBinding.
func (a *Agent) rollback() error {
	if err := a.snapshot.Restore(a.doc); err != nil {
		return fmt.Errorf("restore binding: %w", err)
	}

	if err := a.doc.Save(); err != nil {
		return fmt.Errorf("save restored snips configuration: %w", err)
	}

	a.snapshot = snipsconf.BindingSnapshot{}
	a.logger.Info().Msg("Local configuration restored")

	return nil
}

func (a *Agent) restart(ctx context.Context) error {
	if err := a.restarter.Restart(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Restarting local Snips failed, restart it manually")
		return err
	}

	a.setPhase(models.PhaseDone)

	return nil
}

// busFailure handles a lost or unusable connection: the address is dropped
// and the operator is asked for it again. A binding awaiting confirmation is
// rolled back first.
func (a *Agent) busFailure(ctx context.Context, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.logger.Error().Err(cause).Str("core_address", a.session.CoreAddress).Msg("Lost connection to the core bus")

	if a.session.Phase == models.PhaseAwaitConfigAck {
		if err := a.rollback(); err != nil {
			return err
		}
	}

	a.closeConn()
	a.resetAddress()

	return nil
}

func (a *Agent) resetAddress() {
	a.session.CoreAddress = ""
	a.setPhase(models.PhaseAwaitCoreAddress)
}

func (a *Agent) publishName(ctx context.Context, topic string) error {
	if a.conn == nil {
		return errBusLost
	}

	return bus.PublishJSON(ctx, a.conn, topic, models.NameRequest{Name: a.session.DesiredName})
}

func (a *Agent) closeConn() {
	if a.conn == nil {
		return
	}

	if err := a.conn.Close(); err != nil && !errors.Is(err, bus.ErrClosed) {
		a.logger.Debug().Err(err).Msg("Closing bus connection")
	}

	a.conn = nil
}
