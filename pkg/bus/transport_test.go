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
	"context"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
)

func runNATSServer(t *testing.T) (*server.Server, int) {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	addr, ok := srv.Addr().(*net.TCPAddr)
	require.True(t, ok, "expected TCP address from embedded NATS server")

	return srv, addr.Port
}

func TestNATSDialerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv, port := runNATSServer(t)
	t.Cleanup(srv.Shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dialer := NewNATSDialer(port, "test", logger.NewTestLogger())

	core, err := dialer.Dial(ctx, "127.0.0.1")
	require.NoError(t, err)

	defer func() { _ = core.Close() }()

	sat, err := dialer.Dial(ctx, "127.0.0.1")
	require.NoError(t, err)

	defer func() { _ = sat.Close() }()

	require.NoError(t, core.Subscribe(ctx, models.CoreTopics()))
	require.NoError(t, PublishJSON(ctx, sat, models.TopicAddSatellite, models.NameRequest{Name: "kitchen"}))

	msg := receive(t, core)
	assert.Equal(t, models.TopicAddSatellite, msg.Topic)
	assert.JSONEq(t, `{"name":"kitchen"}`, string(msg.Payload))
}

func TestNATSDialerClosesMessagesWhenServerStops(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv, port := runNATSServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := NewNATSDialer(port, "test", logger.NewTestLogger()).Dial(ctx, "127.0.0.1")
	require.NoError(t, err)

	srv.Shutdown()

	select {
	case _, ok := <-conn.Messages():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("message channel was not closed after server shutdown")
	}

	require.NoError(t, conn.Close())
}

func TestNATSDialerRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	dialer := NewNATSDialer(port, "test", logger.NewTestLogger())
	dialer.DialTimeout = time.Second

	_, err = dialer.Dial(context.Background(), "127.0.0.1")
	require.ErrorIs(t, err, ErrConnect)
}
