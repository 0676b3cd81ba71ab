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

// Package probe checks that a core address answers ICMP echo before the
// satellite tries to reach its bus.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/satconnect/pkg/logger"
)

// ErrUnreachable is returned when no echo reply arrived. It is recoverable:
// the operator is asked for another address.
var ErrUnreachable = errors.New("host is not reachable")

var errNotIPv4 = errors.New("not an IPv4 address")

const (
	protocolICMP   = 1
	defaultTimeout = 2 * time.Second
	payload        = "satconnect"
)

// Prober checks reachability of a host.
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// ICMPProber sends up to Attempts echo requests and succeeds on the first
// reply. It prefers an unprivileged datagram socket, then a raw socket, and
// finally shells out to ping(8).
type ICMPProber struct {
	Attempts int
	Timeout  time.Duration
	Logger   logger.Logger
}

// NewICMPProber returns a prober with the given attempt count and per-attempt timeout.
func NewICMPProber(attempts int, timeout time.Duration, log logger.Logger) *ICMPProber {
	return &ICMPProber{Attempts: attempts, Timeout: timeout, Logger: log}
}

func (p *ICMPProber) Probe(ctx context.Context, host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty address", ErrUnreachable)
	}

	ip, err := resolveIPv4(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, host, err)
	}

	for _, network := range []string{"udp4", "ip4:icmp"} {
		conn, err := icmp.ListenPacket(network, "0.0.0.0")
		if err != nil {
			p.Logger.Debug().Err(err).Str("network", network).Msg("ICMP socket unavailable")
			continue
		}

		err = p.echo(ctx, conn, network, ip)
		_ = conn.Close()

		return err
	}

	return p.ping(ctx, ip.String())
}

func (p *ICMPProber) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}

	return p.Attempts
}

func (p *ICMPProber) timeout() time.Duration {
	if p.Timeout <= 0 {
		return defaultTimeout
	}

	return p.Timeout
}

func (p *ICMPProber) echo(ctx context.Context, conn *icmp.PacketConn, network string, ip net.IP) error {
	var dst net.Addr = &net.IPAddr{IP: ip}
	if network == "udp4" {
		dst = &net.UDPAddr{IP: ip}
	}

	id := os.Getpid() & 0xffff
	buf := make([]byte, 1500)

	for seq := 1; seq <= p.attempts(); seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := EchoRequest(id, seq)
		if err != nil {
			return err
		}

		deadline := time.Now().Add(p.timeout())
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}

		if _, err := conn.WriteTo(req, dst); err != nil {
			p.Logger.Debug().Err(err).Int("seq", seq).Msg("Echo request failed")
			continue
		}

		if p.awaitReply(conn, buf, ip, id, network == "udp4") {
			p.Logger.Debug().Str("ip", ip.String()).Int("seq", seq).Msg("Echo reply received")
			return nil
		}
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrUnreachable, ip, p.attempts())
}

func (*ICMPProber) awaitReply(conn *icmp.PacketConn, buf []byte, ip net.IP, id int, anyID bool) bool {
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return false
		}

		if !peerIP(peer).Equal(ip) {
			continue
		}

		if IsEchoReply(buf[:n], id, anyID) {
			return true
		}
	}
}

// EchoRequest builds an ICMPv4 echo request.
func EchoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte(payload)},
	}

	return msg.Marshal(nil)
}

// IsEchoReply reports whether raw is an echo reply to our request. Datagram
// sockets get their identifier rewritten by the kernel, so anyID skips the check.
func IsEchoReply(raw []byte, id int, anyID bool) bool {
	msg, err := icmp.ParseMessage(protocolICMP, raw)
	if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
		return false
	}

	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return false
	}

	return (anyID || echo.ID == id) && bytes.Equal(echo.Data, []byte(payload))
}

func (p *ICMPProber) ping(ctx context.Context, host string) error {
	args := PingArgs(host, p.attempts(), p.timeout())

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.attempts()+1)*p.timeout())
	defer cancel()

	p.Logger.Debug().Strs("args", args).Msg("Falling back to ping")

	if err := exec.CommandContext(ctx, "ping", args...).Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, host, err)
	}

	return nil
}

// PingArgs returns the ping(8) arguments for a quiet probe.
func PingArgs(host string, attempts int, timeout time.Duration) []string {
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}

	return []string{"-q", "-c", strconv.Itoa(attempts), "-W", strconv.Itoa(secs), host}
}

func resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}

		return nil, errNotIPv4
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, fmt.Errorf("no IPv4 address for %s", host)
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}
