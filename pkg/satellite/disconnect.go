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
	"context"
	"fmt"
	"net"

	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

// Disconnect unbinds a paired satellite: the core is asked to drop the name,
// the local binding is removed and Snips is restarted. The request is fire
// and forget; an unreachable core does not keep the satellite bound.
func (a *Agent) Disconnect(ctx context.Context) error {
	binding, ok := snipsconf.CurrentBinding(a.doc)
	if !ok {
		return ErrNotPaired
	}

	name := binding.Name()
	host := binding.CoreAddress

	if h, _, err := net.SplitHostPort(binding.CoreAddress); err == nil {
		host = h
	}

	a.logger.Info().Str("name", name).Str("core_address", host).Msg("Disconnecting satellite")

	if err := a.notifyDisconnect(ctx, host, name); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		a.logger.Warn().Err(err).Str("core_address", host).
			Msg("Could not reach the core, its registry still lists this satellite")
	}

	snipsconf.ClearSatelliteBinding(a.doc)

	if err := a.doc.Save(); err != nil {
		return fmt.Errorf("save snips configuration: %w", err)
	}

	a.logger.Info().Str("name", name).Msg("Local binding removed")

	return a.restarter.Restart(ctx)
}

func (a *Agent) notifyDisconnect(ctx context.Context, host, name string) error {
	conn, err := a.dialer.Dial(ctx, host)
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	return bus.PublishJSON(ctx, conn, models.TopicDisconnect, models.NameRequest{Name: name})
}
