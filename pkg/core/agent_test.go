package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/satconnect/pkg/bus"
	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/models"
	"github.com/carverauto/satconnect/pkg/restart"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

const coreTOML = `[snips-common]
mqtt = "localhost:1883"

[snips-audio-server]

[snips-hotword]
model = "hey_snips"
`

var emptyReply = []byte("{}")

type restartFunc func(ctx context.Context) error

func (f restartFunc) Restart(ctx context.Context) error {
	return f(ctx)
}

func waitReady(t *testing.T, ctx context.Context, agent *Agent, errCh <-chan error) {
	t.Helper()

	select {
	case <-agent.Ready():
	case err := <-errCh:
		t.Fatalf("core stopped before listening: %v", err)
	case <-ctx.Done():
		t.Fatal("core did not start listening")
	}
}

func loadDoc(t *testing.T, content string) *snipsconf.Document {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snips.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := snipsconf.Load(path)
	require.NoError(t, err)

	return doc
}

func registry(t *testing.T, doc *snipsconf.Document) []string {
	t.Helper()

	reloaded, err := snipsconf.Load(doc.Path())
	require.NoError(t, err)

	entries, _, err := snipsconf.Registry(reloaded)
	require.NoError(t, err)

	return entries
}

func request(topic, name string) bus.Message {
	return bus.Message{Topic: topic, Payload: []byte(`{"name":"` + name + `"}`)}
}

type fixture struct {
	agent     *Agent
	doc       *snipsconf.Document
	conn      *bus.MockConn
	restarter *restart.MockRestarter
}

func newFixture(t *testing.T, exitAfterPairing bool) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		doc:       loadDoc(t, coreTOML),
		conn:      bus.NewMockConn(ctrl),
		restarter: restart.NewMockRestarter(ctrl),
	}

	agent, err := NewAgent(Config{
		Document:         f.doc,
		Restarter:        f.restarter,
		Conn:             f.conn,
		ExitAfterPairing: exitAfterPairing,
		Logger:           logger.NewTestLogger(),
	})
	require.NoError(t, err)

	f.agent = agent

	return f
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	gomock.InOrder(
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicNameAvailable, emptyReply).Return(nil),
		f.restarter.EXPECT().Restart(gomock.Any()).Return(nil),
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdated, emptyReply).Return(nil),
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicNameNotAvailable, emptyReply).Return(nil),
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicNameAvailable, emptyReply).Return(nil),
	)

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicCheckAvailability, "kitchen")))
	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicAddSatellite, "kitchen")))
	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicCheckAvailability, "kitchen")))
	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicCheckAvailability, "bedroom")))
}

func TestCheckAvailabilityHasNoSideEffects(t *testing.T) {
	f := newFixture(t, false)

	before, err := os.ReadFile(f.doc.Path())
	require.NoError(t, err)

	f.conn.EXPECT().Publish(gomock.Any(), models.TopicNameAvailable, emptyReply).Return(nil)
	require.NoError(t, f.agent.HandleMessage(context.Background(), request(models.TopicCheckAvailability, "kitchen")))

	after, err := os.ReadFile(f.doc.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.False(t, f.doc.Has(snipsconf.SectionHotword, snipsconf.KeyAudio))
}

func TestAddSatelliteIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.restarter.EXPECT().Restart(gomock.Any()).Return(nil).Times(2)
	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdated, emptyReply).Return(nil).Times(2)

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicAddSatellite, "kitchen")))
	once, err := os.ReadFile(f.doc.Path())
	require.NoError(t, err)

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicAddSatellite, "kitchen")))
	twice, err := os.ReadFile(f.doc.Path())
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, []string{snipsconf.DefaultBinding, "kitchen@mqtt"}, registry(t, f.doc))

	bind, _ := f.doc.String(snipsconf.SectionAudioServer, snipsconf.KeyBind)
	assert.Equal(t, snipsconf.DefaultBinding, bind)
}

func TestAddSatelliteExitsAfterPairing(t *testing.T) {
	f := newFixture(t, true)

	f.restarter.EXPECT().Restart(gomock.Any()).Return(nil)
	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdated, emptyReply).Return(nil)

	require.NoError(t, f.agent.HandleMessage(context.Background(), request(models.TopicAddSatellite, "kitchen")))

	select {
	case <-f.agent.Done():
	default:
		t.Fatal("Done not closed after a successful registration")
	}
}

func TestAddSatelliteRestartFailure(t *testing.T) {
	f := newFixture(t, true)
	restartErr := errors.New("systemctl failed")

	f.restarter.EXPECT().Restart(gomock.Any()).Return(restartErr)
	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdateFailed, emptyReply).Return(nil)

	err := f.agent.HandleMessage(context.Background(), request(models.TopicAddSatellite, "kitchen"))
	require.ErrorIs(t, err, restartErr)

	select {
	case <-f.agent.Done():
		t.Fatal("Done closed although the restart failed")
	default:
	}

	assert.Equal(t, []string{snipsconf.DefaultBinding, "kitchen@mqtt"}, registry(t, f.doc),
		"registry change is kept, the core does not roll back")
}

func TestAddSatelliteInvalidPayload(t *testing.T) {
	f := newFixture(t, false)

	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdateFailed, emptyReply).Return(nil)

	err := f.agent.HandleMessage(context.Background(), bus.Message{Topic: models.TopicAddSatellite, Payload: []byte(`{"name":""}`)})
	require.ErrorIs(t, err, errInvalidRequest)
}

func TestAddSatelliteSaveFailure(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, os.RemoveAll(filepath.Dir(f.doc.Path())))

	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdateFailed, emptyReply).Return(nil)

	err := f.agent.HandleMessage(context.Background(), request(models.TopicAddSatellite, "kitchen"))
	require.Error(t, err)
}

func TestRemoveSatellite(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.restarter.EXPECT().Restart(gomock.Any()).Return(nil).Times(3)
	f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdated, emptyReply).Return(nil)

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicAddSatellite, "kitchen")))

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicDisconnect, "bedroom")))
	assert.Equal(t, []string{snipsconf.DefaultBinding, "kitchen@mqtt"}, registry(t, f.doc))

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicDisconnect, "kitchen")))
	assert.Equal(t, []string{snipsconf.DefaultBinding}, registry(t, f.doc))
}

func TestRemoveUnknownSatelliteStillPersistsAndRestarts(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, os.Remove(f.doc.Path()))

	f.restarter.EXPECT().Restart(gomock.Any()).Return(nil)

	require.NoError(t, f.agent.HandleMessage(context.Background(), request(models.TopicDisconnect, "garage")))

	_, err := os.Stat(f.doc.Path())
	require.NoError(t, err, "document is written back even when nothing was removed")
	assert.Empty(t, registry(t, f.doc))
}

func TestReservedNameIsNeverAvailableOrRemoved(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	gomock.InOrder(
		f.restarter.EXPECT().Restart(gomock.Any()).Return(nil),
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicConfUpdated, emptyReply).Return(nil),
		f.conn.EXPECT().Publish(gomock.Any(), models.TopicNameNotAvailable, emptyReply).Return(nil),
	)

	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicAddSatellite, "kitchen")))
	require.NoError(t, f.agent.HandleMessage(ctx, request(models.TopicCheckAvailability, "default")))

	err := f.agent.HandleMessage(ctx, request(models.TopicDisconnect, "default"))
	require.ErrorIs(t, err, snipsconf.ErrReservedName)
	assert.Equal(t, []string{snipsconf.DefaultBinding, "kitchen@mqtt"}, registry(t, f.doc))
}

func TestHandleMessageIgnoresReplies(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.agent.HandleMessage(context.Background(), bus.Message{Topic: models.TopicConfUpdated}))
}

func TestNewAgentValidation(t *testing.T) {
	_, err := NewAgent(Config{Logger: logger.NewTestLogger()})
	require.ErrorIs(t, err, errMissingDependency)
}

func TestRunWithMemoryBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker := bus.NewMemoryBroker()
	doc := loadDoc(t, coreTOML)
	restarts := 0

	agent, err := NewAgent(Config{
		Document: doc,
		Restarter: restartFunc(func(context.Context) error {
			restarts++
			return nil
		}),
		Dialer:           broker,
		ExitAfterPairing: true,
		Logger:           logger.NewTestLogger(),
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() { errCh <- agent.Run(ctx) }()

	sat, err := broker.Dial(ctx, "192.168.1.10")
	require.NoError(t, err)
	require.NoError(t, sat.Subscribe(ctx, models.SatelliteTopics()))

	waitReady(t, ctx, agent, errCh)

	require.NoError(t, bus.PublishJSON(ctx, sat, models.TopicCheckAvailability, models.NameRequest{Name: "kitchen"}))

	select {
	case msg := <-sat.Messages():
		assert.Equal(t, models.TopicNameAvailable, msg.Topic)
	case <-ctx.Done():
		t.Fatal("no availability reply")
	}

	require.NoError(t, bus.PublishJSON(ctx, sat, models.TopicAddSatellite, models.NameRequest{Name: "kitchen"}))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("core did not exit after pairing")
	}

	assert.Equal(t, 1, restarts)
	assert.Contains(t, broker.Topics(), models.TopicConfUpdated)
}

func TestRunBusUnavailable(t *testing.T) {
	broker := bus.NewMemoryBroker()
	broker.Deny(models.DefaultCoreHost)

	agent, err := NewAgent(Config{
		Document:  loadDoc(t, coreTOML),
		Restarter: restartFunc(func(context.Context) error { return nil }),
		Dialer:    broker,
		Logger:    logger.NewTestLogger(),
	})
	require.NoError(t, err)

	require.ErrorIs(t, agent.Run(context.Background()), bus.ErrConnect)
}

func TestRunStopsWhenBusIsLost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	broker := bus.NewMemoryBroker()

	agent, err := NewAgent(Config{
		Document:  loadDoc(t, coreTOML),
		Restarter: restartFunc(func(context.Context) error { return nil }),
		Dialer:    broker,
		Logger:    logger.NewTestLogger(),
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() { errCh <- agent.Run(ctx) }()

	waitReady(t, ctx, agent, errCh)

	broker.Drop(models.DefaultCoreHost)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrBusLost)
	case <-ctx.Done():
		t.Fatal("core kept running after the bus was lost")
	}
}
