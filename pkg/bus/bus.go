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

// Package bus is the message bus adapter shared by the satellite and the core.
// A Conn is one persistent session; inbound messages are delivered in order on
// a single channel so the owning agent is the only consumer.
package bus

//go:generate mockgen -destination=mock_bus.go -package=bus github.com/carverauto/satconnect/pkg/bus Conn,Dialer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrConnect is returned by Dial when no session could be established.
	// Agents treat it as recoverable.
	ErrConnect = errors.New("bus connection failed")
	// ErrClosed is returned when using a closed connection.
	ErrClosed = errors.New("bus connection closed")
)

const inboxSize = 64

// Message is one inbound publication.
type Message struct {
	Topic   string
	Payload []byte
}

// Conn is a session with the bus.
type Conn interface {
	// Subscribe registers topics; it returns once the broker acknowledged them.
	Subscribe(ctx context.Context, topics []string) error
	// Publish sends payload on topic with at-least-once delivery.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Messages is closed when the session ends, locally or because the
	// broker went away.
	Messages() <-chan Message
	Close() error
}

// Dialer opens a Conn to the bus at host. Reconnection is left to the caller.
type Dialer interface {
	Dial(ctx context.Context, host string) (Conn, error)
}

// PublishJSON encodes v and publishes it on topic.
func PublishJSON(ctx context.Context, conn Conn, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	return conn.Publish(ctx, topic, payload)
}

// ClientID returns a unique client identifier for role.
func ClientID(role string) string {
	return fmt.Sprintf("satconnect-%s-%s", role, uuid.NewString())
}

// inbox fans transport callbacks into a single channel that can be closed
// safely while callbacks are still running.
type inbox struct {
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	ch     chan Message
	once   sync.Once
}

func newInbox() *inbox {
	return &inbox{
		done: make(chan struct{}),
		ch:   make(chan Message, inboxSize),
	}
}

func (i *inbox) deliver(msg Message) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return false
	}

	select {
	case i.ch <- msg:
		return true
	case <-i.done:
		return false
	}
}

func (i *inbox) close() {
	i.once.Do(func() {
		close(i.done)

		i.mu.Lock()
		i.closed = true
		close(i.ch)
		i.mu.Unlock()
	})
}

func (i *inbox) isClosed() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}
