package satellite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/core"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/probe"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

const (
	coreIP        = "192.168.1.10"
	satelliteTOML = `[snips-common]
bus = "mqtt"

[snips-audio-server]
frame = 256
`
	coreTOML = `[snips-common]
mqtt = "localhost:1883"

[snips-audio-server]

[snips-hotword]
model = "hey_snips"
`
)

var errScriptExhausted = errors.New("prompt script exhausted")

type scriptedPrompter struct {
	mu        sync.Mutex
	addresses []string
	names     []string
	decisions []string
}

func (p *scriptedPrompter) next(queue *[]string, kind string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(*queue) == 0 {
		return "", fmt.Errorf("%w: %s", errScriptExhausted, kind)
	}

	answer := (*queue)[0]
	*queue = (*queue)[1:]

	return answer, nil
}

func (p *scriptedPrompter) PromptForAddress(context.Context) (string, error) {
	return p.next(&p.addresses, "address")
}

func (p *scriptedPrompter) PromptForName(context.Context) (string, error) {
	return p.next(&p.names, "name")
}

func (p *scriptedPrompter) PromptForReplaceDecision(context.Context) (string, error) {
	return p.next(&p.decisions, "decision")
}

type phaseRecorder struct {
	mu     sync.Mutex
	phases []models.Phase
}

func (r *phaseRecorder) PhaseChanged(_, to models.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.phases = append(r.phases, to)
}

func (r *phaseRecorder) seen() []models.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.Phase(nil), r.phases...)
}

type countingRestarter struct {
	calls atomic.Int32
	err   error
}

func (c *countingRestarter) Restart(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func loadDoc(t *testing.T, content string) *snipsconf.Document {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snips.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := snipsconf.Load(path)
	require.NoError(t, err)

	return doc
}

func reload(t *testing.T, doc *snipsconf.Document) *snipsconf.Document {
	t.Helper()

	reloaded, err := snipsconf.Load(doc.Path())
	require.NoError(t, err)

	return reloaded
}

type proberFunc func(ctx context.Context, host string) error

func (f proberFunc) Probe(ctx context.Context, host string) error {
	return f(ctx, host)
}

type indicatorFunc func(from, to models.Phase)

func (f indicatorFunc) PhaseChanged(from, to models.Phase) {
	f(from, to)
}

// reachable answers echo only from the core address.
var reachable = proberFunc(func(_ context.Context, host string) error {
	if host != coreIP {
		return probe.ErrUnreachable
	}

	return nil
})

func newSatellite(t *testing.T, doc *snipsconf.Document, dialer bus.Dialer, p *scriptedPrompter, r restart.Restarter, ind Indicator) *Agent {
	t.Helper()

	agent, err := NewAgent(Config{
		Document:  doc,
		Dialer:    dialer,
		Prober:    reachable,
		Prompter:  p,
		Restarter: r,
		Indicator: ind,
		BusPort:   models.DefaultMQTTPort,
		Logger:    logger.NewTestLogger(),
	})
	require.NoError(t, err)

	return agent
}

// startCore runs a real core agent on broker and waits until it listens.
func startCore(t *testing.T, ctx context.Context, broker *bus.MemoryBroker, doc *snipsconf.Document, r restart.Restarter) <-chan error {
	t.Helper()

	agent, err := core.NewAgent(core.Config{
		Document:         doc,
		Restarter:        r,
		Dialer:           broker,
		ExitAfterPairing: true,
		Logger:           logger.NewTestLogger(),
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() { errCh <- agent.Run(ctx) }()

	select {
	case <-agent.Ready():
	case err := <-errCh:
		t.Fatalf("core stopped before listening: %v", err)
	case <-ctx.Done():
		t.Fatal("core did not start listening")
	}

	return errCh
}

// fakeCore answers each request with the topics returned by reply.
func fakeCore(t *testing.T, ctx context.Context, broker *bus.MemoryBroker, reply func(n int, msg bus.Message) []string) {
	t.Helper()

	conn, err := broker.Dial(ctx, models.DefaultCoreHost)
	require.NoError(t, err)
	require.NoError(t, conn.Subscribe(ctx, models.CoreTopics()))

	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		n := 0

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-conn.Messages():
				if !ok {
					return
				}

				n++

				for _, topic := range reply(n, msg) {
					_ = bus.PublishJSON(ctx, conn, topic, models.Empty{})
				}
			}
		}
	}()
}
