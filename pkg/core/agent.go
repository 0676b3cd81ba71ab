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

// Package core answers satellite pairing requests: it checks proposed names
// against the registry in the local Snips configuration, registers and
// removes satellites, and restarts Snips after each change.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

// Config wires an Agent to its collaborators.
type Config struct {
	Document  *snipsconf.Document
	Restarter restart.Restarter
	// Dialer and Host are used by Run unless Conn is already established.
	Dialer bus.Dialer
	Host   string
	Conn   bus.Conn
	// ExitAfterPairing closes Done after the first successful registration.
	ExitAfterPairing bool
	Logger           logger.Logger
}

// Agent is a stateless responder; the configuration document is the only
// state carried between requests.
type Agent struct {
	doc              *snipsconf.Document
	restarter        restart.Restarter
	dialer           bus.Dialer
	host             string
	conn             bus.Conn
	exitAfterPairing bool
	logger           logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	ready     chan struct{}
	readyOnce sync.Once
}

// NewAgent validates cfg and returns an Agent.
func NewAgent(cfg Config) (*Agent, error) {
	switch {
	case cfg.Document == nil:
		return nil, fmt.Errorf("%w: document", errMissingDependency)
	case cfg.Restarter == nil:
		return nil, fmt.Errorf("%w: restarter", errMissingDependency)
	case cfg.Conn == nil && cfg.Dialer == nil:
		return nil, fmt.Errorf("%w: dialer or connection", errMissingDependency)
	case cfg.Logger == nil:
		return nil, fmt.Errorf("%w: logger", errMissingDependency)
	}

	host := cfg.Host
	if host == "" {
		host = models.DefaultCoreHost
	}

	return &Agent{
		doc:              cfg.Document,
		restarter:        cfg.Restarter,
		dialer:           cfg.Dialer,
		host:             host,
		conn:             cfg.Conn,
		exitAfterPairing: cfg.ExitAfterPairing,
		logger:           cfg.Logger,
		done:             make(chan struct{}),
		ready:            make(chan struct{}),
	}, nil
}

// Done is closed once a satellite has been registered and Snips restarted,
// when the agent was configured to exit after pairing.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// Ready is closed once Run has subscribed to the request topics.
func (a *Agent) Ready() <-chan struct{} {
	return a.ready
}

// Run connects to the local bus, subscribes to the request topics and serves
// requests until Done is closed, ctx is cancelled or the connection ends.
func (a *Agent) Run(ctx context.Context) error {
	if a.conn == nil {
		conn, err := a.dialer.Dial(ctx, a.host)
		if err != nil {
			return fmt.Errorf("couldn't connect to the %s bus, aborting: %w", a.host, err)
		}

		a.conn = conn
	}

	defer func() { _ = a.conn.Close() }()

	if err := a.conn.Subscribe(ctx, models.CoreTopics()); err != nil {
		return fmt.Errorf("subscribe to pairing requests: %w", err)
	}

	a.readyOnce.Do(func() { close(a.ready) })

	a.logger.Info().Str("host", a.host).Msg("Waiting for satellites")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			a.logger.Info().Msg("All done!")
			return nil
		case msg, ok := <-a.conn.Messages():
			if !ok {
				return ErrBusLost
			}

			if err := a.HandleMessage(ctx, msg); err != nil {
				a.logger.Error().Err(err).Str("topic", msg.Topic).Msg("Pairing request failed")
			}
		}
	}
}

// HandleMessage processes one inbound request and publishes its reply.
func (a *Agent) HandleMessage(ctx context.Context, msg bus.Message) error {
	if a.conn == nil {
		return errNoConnection
	}

	switch msg.Topic {
	case models.TopicCheckAvailability:
		return a.checkAvailability(ctx, msg.Payload)
	case models.TopicAddSatellite:
		return a.addSatellite(ctx, msg.Payload)
	case models.TopicDisconnect:
		return a.removeSatellite(ctx, msg.Payload)
	default:
		a.logger.Debug().Str("topic", msg.Topic).Msg("Ignoring unexpected message")
		return nil
	}
}

func decodeName(payload []byte) (string, error) {
	var req models.NameRequest

	if err := json.Unmarshal(payload, &req); err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fmt.Errorf("%w: %w", errInvalidRequest, snipsconf.ErrEmptyName)
	}

	return name, nil
}

func (a *Agent) checkAvailability(ctx context.Context, payload []byte) error {
	name, err := decodeName(payload)
	if err != nil {
		return err
	}

	a.logger.Info().Str("name", name).Msg("Checking name availability")

	free, err := snipsconf.IsNameAvailable(a.doc, name)

	switch {
	case errors.Is(err, snipsconf.ErrReservedName):
		a.logger.Warn().Str("name", name).Msg("Satellite name is reserved by the core")
	case err != nil:
		a.logger.Error().Err(err).Str("name", name).Msg("Registry unreadable, reporting name as taken")
	}

	topic := models.TopicNameNotAvailable
	if free {
		topic = models.TopicNameAvailable

		a.logger.Info().Str("name", snipsconf.BindAddress(name)).Msg("Satellite name is free")
	} else {
		a.logger.Warn().Str("name", snipsconf.BindAddress(name)).Msg("Satellite name is already declared")
	}

	return a.reply(ctx, topic)
}

// addSatellite registers, persists and restarts before confirming. The
// document is not rolled back on failure: a retry converges because
// registration is idempotent.
func (a *Agent) addSatellite(ctx context.Context, payload []byte) error {
	name, err := decodeName(payload)
	if err == nil {
		err = a.register(ctx, name)
	}

	if err != nil {
		a.logger.Error().Err(err).Msg("Updating and restarting Snips after adding satellite failed")

		if pubErr := a.reply(ctx, models.TopicConfUpdateFailed); pubErr != nil {
			return errors.Join(err, pubErr)
		}

		return err
	}

	if err := a.reply(ctx, models.TopicConfUpdated); err != nil {
		return err
	}

	a.logger.Info().Str("name", name).Msg("Satellite registered")

	if a.exitAfterPairing {
		a.closeOnce.Do(func() { close(a.done) })
	}

	return nil
}

func (a *Agent) register(ctx context.Context, name string) error {
	a.logger.Info().Str("name", name).Msg("Adding satellite")

	added, err := snipsconf.RegisterSatellite(a.doc, name)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	if !added {
		a.logger.Info().Str("name", name).Msg("Satellite already registered")
	}

	if err := a.doc.Save(); err != nil {
		return fmt.Errorf("save snips configuration: %w", err)
	}

	return a.restarter.Restart(ctx)
}

// removeSatellite is fire and forget: no reply topic exists for disconnects.
// The document is persisted and the services restarted even when name was
// not registered.
func (a *Agent) removeSatellite(ctx context.Context, payload []byte) error {
	name, err := decodeName(payload)
	if err != nil {
		return err
	}

	a.logger.Info().Str("name", name).Msg("Removing satellite")

	removed, err := snipsconf.UnregisterSatellite(a.doc, name)
	if err != nil {
		return fmt.Errorf("unregister %s: %w", name, err)
	}

	if !removed {
		a.logger.Info().Str("name", name).Msg("Satellite was not registered")
	}

	if err := a.doc.Save(); err != nil {
		return fmt.Errorf("save snips configuration: %w", err)
	}

	if err := a.restarter.Restart(ctx); err != nil {
		return fmt.Errorf("restart after removing %s: %w", name, err)
	}

	return nil
}

func (a *Agent) reply(ctx context.Context, topic string) error {
	if err := bus.PublishJSON(ctx, a.conn, topic, models.Empty{}); err != nil {
		return fmt.Errorf("reply on %s: %w", topic, err)
	}

	return nil
}
