package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/carverauto/satconnect/pkg/logger"
)

func echoReply(t *testing.T, id int, data string) []byte {
	t.Helper()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Body: &icmp.Echo{ID: id, Seq: 1, Data: []byte(data)},
	}

	raw, err := msg.Marshal(nil)
	require.NoError(t, err)

	return raw
}

func TestIsEchoReply(t *testing.T) {
	assert.True(t, IsEchoReply(echoReply(t, 42, payload), 42, false))
	assert.False(t, IsEchoReply(echoReply(t, 7, payload), 42, false))
	assert.True(t, IsEchoReply(echoReply(t, 7, payload), 42, true))
	assert.False(t, IsEchoReply(echoReply(t, 42, "other"), 42, false))

	req, err := EchoRequest(42, 1)
	require.NoError(t, err)
	assert.False(t, IsEchoReply(req, 42, false), "a request is not a reply")

	assert.False(t, IsEchoReply([]byte{0x00}, 42, true))
}

func TestPingArgs(t *testing.T) {
	assert.Equal(t, []string{"-q", "-c", "3", "-W", "2", "10.0.0.2"}, PingArgs("10.0.0.2", 3, 2*time.Second))
	assert.Equal(t, []string{"-q", "-c", "1", "-W", "1", "core"}, PingArgs("core", 1, 100*time.Millisecond))
}

func TestProbeEmptyHost(t *testing.T) {
	p := NewICMPProber(3, time.Second, logger.NewTestLogger())

	require.ErrorIs(t, p.Probe(context.Background(), ""), ErrUnreachable)
}

func TestProbeRejectsIPv6Literal(t *testing.T) {
	p := NewICMPProber(3, time.Second, logger.NewTestLogger())

	require.ErrorIs(t, p.Probe(context.Background(), "fe80::1"), ErrUnreachable)
}
