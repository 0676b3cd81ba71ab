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
	"fmt"
	"slices"
	"sync"
)

// MemoryBroker is an in-process bus implementing Dialer. It lets the core and
// satellite agents run against each other in one process, with Deny and Drop
// standing in for an unreachable or restarting broker.
type MemoryBroker struct {
	mu        sync.Mutex
	conns     map[*memoryConn]string
	denied    map[string]bool
	published []Message
}

// NewMemoryBroker returns an empty broker accepting every host.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		conns:  make(map[*memoryConn]string),
		denied: make(map[string]bool),
	}
}

// Deny makes Dial to host fail until Allow is called.
func (b *MemoryBroker) Deny(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.denied[host] = true
}

// Allow reverses Deny.
func (b *MemoryBroker) Allow(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.denied, host)
}

// Drop ends every session dialed to host, as a broker restart would.
func (b *MemoryBroker) Drop(host string) {
	b.mu.Lock()

	var dropped []*memoryConn

	for conn, h := range b.conns {
		if h == host {
			dropped = append(dropped, conn)
			delete(b.conns, conn)
		}
	}

	b.mu.Unlock()

	for _, conn := range dropped {
		conn.inbox.close()
	}
}

// Published returns every message published so far, in order.
func (b *MemoryBroker) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.published)
}

// Topics returns the topics of every message published so far, in order.
func (b *MemoryBroker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	topics := make([]string, 0, len(b.published))
	for _, m := range b.published {
		topics = append(topics, m.Topic)
	}

	return topics
}

// Dial opens a session. The host only matters for Deny and Drop.
func (b *MemoryBroker) Dial(ctx context.Context, host string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.denied[host] {
		return nil, fmt.Errorf("%w: %s refused", ErrConnect, host)
	}

	conn := &memoryConn{broker: b, inbox: newInbox(), topics: make(map[string]bool)}
	b.conns[conn] = host

	return conn, nil
}

func (b *MemoryBroker) publish(msg Message) {
	b.mu.Lock()

	b.published = append(b.published, msg)

	var targets []*memoryConn

	for conn := range b.conns {
		if conn.subscribed(msg.Topic) {
			targets = append(targets, conn)
		}
	}

	b.mu.Unlock()

	for _, conn := range targets {
		conn.inbox.deliver(Message{Topic: msg.Topic, Payload: slices.Clone(msg.Payload)})
	}
}

func (b *MemoryBroker) remove(conn *memoryConn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.conns, conn)
}

type memoryConn struct {
	broker *MemoryBroker
	inbox  *inbox

	mu     sync.Mutex
	topics map[string]bool
}

func (c *memoryConn) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.topics[topic]
}

func (c *memoryConn) Subscribe(ctx context.Context, topics []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.inbox.isClosed() {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, topic := range topics {
		c.topics[topic] = true
	}

	return nil
}

func (c *memoryConn) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.inbox.isClosed() {
		return ErrClosed
	}

	c.broker.publish(Message{Topic: topic, Payload: slices.Clone(payload)})

	return nil
}

func (c *memoryConn) Messages() <-chan Message {
	return c.inbox.ch
}

func (c *memoryConn) Close() error {
	c.broker.remove(c)
	c.inbox.close()

	return nil
}
