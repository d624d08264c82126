package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct{ events []axiom.Event }

func (m *memSink) Send(ev axiom.Event) { m.events = append(m.events, ev) }

func TestAxiomWriterDropsDebug(t *testing.T) {
	sink := &memSink{}
	w := &axiomWriter{sink: sink, service: "podofo"}

	_, err := w.Write([]byte(`{"level":"debug","message":"noise"}`))
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"level":"warn","message":"cleanup failed"}`))
	require.NoError(t, err)
	_, err = w.Write([]byte("not json"))
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, "podofo", sink.events[0]["service"])
	assert.Equal(t, "cleanup failed", sink.events[0]["message"])
	assert.Equal(t, "not json", sink.events[1]["message"])
}

func TestInitWritesJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "podofo.log")
	require.NoError(t, Init(Options{Level: "debug", Console: &buf, File: file, MaxSizeMB: 1}))
	defer Close()

	ctx, _ := WithRequest(context.Background(), "req-1", "merge")
	zerolog.Ctx(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "merge", line["operation"])
	assert.Equal(t, "hello", line["message"])
	assert.FileExists(t, file)
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "loud", Console: &buf}))
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestWithRequestOmitsUnknownOperation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "info", Console: &buf}))

	ctx, l := WithRequest(context.Background(), "req-2", "")
	l.Info().Msg("first")
	zerolog.Ctx(ctx).Info().Msg("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, raw := range lines {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		assert.Equal(t, "req-2", line["request_id"])
		assert.NotContains(t, line, "operation")
	}
}
