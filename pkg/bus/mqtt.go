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
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/carverauto/satconnect/pkg/logger"
)

const (
	mqttQoS             = 1
	mqttQuiesceMillis   = 250
	defaultDialTimeout  = 10 * time.Second
	defaultPublishFlush = 5 * time.Second
)

// MQTTDialer connects to an MQTT broker such as the mosquitto instance that
// ships with Snips.
type MQTTDialer struct {
	Port        int
	Role        string
	DialTimeout time.Duration
	Logger      logger.Logger
}

// NewMQTTDialer returns a dialer for the broker port, identifying clients by role.
func NewMQTTDialer(port int, role string, log logger.Logger) *MQTTDialer {
	return &MQTTDialer{Port: port, Role: role, DialTimeout: defaultDialTimeout, Logger: log}
}

type mqttConn struct {
	client mqtt.Client
	inbox  *inbox
	logger logger.Logger
}

// BrokerURL returns the tcp:// URL of the broker at host:port.
func BrokerURL(host string, port int) string {
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Dial connects with auto-reconnect disabled; a lost connection closes Messages.
func (d *MQTTDialer) Dial(ctx context.Context, host string) (Conn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	conn := &mqttConn{inbox: newInbox(), logger: d.Logger}

	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(host, d.Port)).
		SetClientID(ClientID(d.Role)).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(true).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			d.Logger.Warn().Err(err).Str("host", host).Msg("MQTT connection lost")
			conn.inbox.close()
		})

	conn.client = mqtt.NewClient(opts)

	d.Logger.Debug().Str("broker", BrokerURL(host, d.Port)).Msg("Connecting to MQTT broker")

	if err := waitToken(ctx, conn.client.Connect()); err != nil {
		conn.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, BrokerURL(host, d.Port), err)
	}

	return conn, nil
}

func (c *mqttConn) Subscribe(ctx context.Context, topics []string) error {
	for _, topic := range topics {
		tok := c.client.Subscribe(topic, mqttQoS, func(_ mqtt.Client, m mqtt.Message) {
			c.inbox.deliver(Message{Topic: m.Topic(), Payload: append([]byte(nil), m.Payload()...)})
		})

		if err := waitToken(ctx, tok); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		c.logger.Debug().Str("topic", topic).Msg("Subscribed")
	}

	return nil
}

func (c *mqttConn) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.inbox.isClosed() || !c.client.IsConnected() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishFlush)
	defer cancel()

	if err := waitToken(ctx, c.client.Publish(topic, mqttQoS, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

func (c *mqttConn) Messages() <-chan Message {
	return c.inbox.ch
}

func (c *mqttConn) Close() error {
	c.inbox.close()

	if c.client.IsConnected() {
		c.client.Disconnect(mqttQuiesceMillis)
	}

	return nil
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
