package prompt

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineAnswers(t *testing.T) {
	var out bytes.Buffer

	p := NewLine(strings.NewReader("10.0.0.2\n  kitchen \nY\n"), &out)
	ctx := context.Background()

	addr, err := p.PromptForAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", addr)

	name, err := p.PromptForName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", name)

	decision, err := p.PromptForReplaceDecision(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Y", decision)

	_, err = p.PromptForName(ctx)
	require.ErrorIs(t, err, io.EOF)

	assert.Equal(t, AddressQuestion+NameQuestion+ReplaceQuestion+NameQuestion, out.String())
}

func TestLineCancelKeepsPendingInput(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	p := NewLine(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.PromptForName(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = io.WriteString(w, "garage\n") }()

	name, err := p.PromptForName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "garage", name)
}

func TestTUIModelEnter(t *testing.T) {
	m := newModel(NameQuestion, "kitchen")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(" office ")})
	m = next.(*model)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)

	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.False(t, m.cancelled)
	assert.Equal(t, "office", m.answer)
	assert.Empty(t, m.View())
}

func TestTUIModelEscape(t *testing.T) {
	m := newModel(ReplaceQuestion, "y/n")
	assert.Contains(t, m.View(), "I am replacing an old device")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(*model)

	require.NotNil(t, cmd)
	assert.True(t, m.cancelled)
}

func TestErrCancelledIsCancellation(t *testing.T) {
	require.ErrorIs(t, ErrCancelled, context.Canceled)
}

func TestForTerminalFallsBackToLine(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)

	defer func() { _ = f.Close() }()

	_, ok := ForTerminal(f, f).(*Line)
	assert.True(t, ok)
}
