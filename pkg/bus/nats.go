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
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/satconnect/pkg/logger"
)

// NATSDialer connects to a NATS server. Topic levels separated by '/' are
// mapped to subject tokens separated by '.'.
type NATSDialer struct {
	Port        int
	Role        string
	DialTimeout time.Duration
	Logger      logger.Logger
}

// NewNATSDialer returns a dialer for the NATS port, identifying clients by role.
func NewNATSDialer(port int, role string, log logger.Logger) *NATSDialer {
	return &NATSDialer{Port: port, Role: role, DialTimeout: defaultDialTimeout, Logger: log}
}

type natsConn struct {
	nc      *nats.Conn
	inbox   *inbox
	subs    []*nats.Subscription
	timeout time.Duration
	logger  logger.Logger
}

// TopicToSubject maps a bus topic to a NATS subject.
func TopicToSubject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// SubjectToTopic maps a NATS subject back to a bus topic.
func SubjectToTopic(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}

// Dial connects with reconnection disabled; a disconnect closes Messages.
func (d *NATSDialer) Dial(ctx context.Context, host string) (Conn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	conn := &natsConn{inbox: newInbox(), timeout: timeout, logger: d.Logger}
	url := "nats://" + net.JoinHostPort(host, strconv.Itoa(d.Port))

	nc, err := nats.Connect(url,
		nats.Name(ClientID(d.Role)),
		nats.NoReconnect(),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				d.Logger.Warn().Err(err).Str("host", host).Msg("NATS connection lost")
			}

			conn.inbox.close()
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			conn.inbox.close()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, url, err)
	}

	conn.nc = nc

	return conn, nil
}

func (c *natsConn) Subscribe(ctx context.Context, topics []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, topic := range topics {
		sub, err := c.nc.Subscribe(TopicToSubject(topic), func(m *nats.Msg) {
			c.inbox.deliver(Message{Topic: SubjectToTopic(m.Subject), Payload: m.Data})
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		c.subs = append(c.subs, sub)
	}

	if err := c.nc.FlushTimeout(c.timeout); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	return nil
}

func (c *natsConn) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.inbox.isClosed() || c.nc.IsClosed() {
		return ErrClosed
	}

	if err := c.nc.Publish(TopicToSubject(topic), payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	if err := c.nc.FlushTimeout(c.timeout); err != nil {
		return fmt.Errorf("flush %s: %w", topic, err)
	}

	return nil
}

func (c *natsConn) Messages() <-chan Message {
	return c.inbox.ch
}

func (c *natsConn) Close() error {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}

	c.nc.Close()
	c.inbox.close()

	return nil
}
