package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "forecaster"))

	l.Info("fitted", Float64("slope", 0.25), Int("n", 3), Duration("took", 1500*time.Millisecond), Error(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fitted", entry["message"])
	assert.Equal(t, "forecaster", entry["component"])
	assert.Equal(t, 0.25, entry["slope"])
	assert.Equal(t, float64(3), entry["n"])
	assert.Equal(t, float64(1500), entry["took"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNop()
	l.Error("nothing", String("k", "v"))
	l.With(Bool("x", true)).Debug("still nothing")
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "learncast.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Warn("series malformed", String("skill", "algebra"))
	}
	l.Error("store failed", Error(errors.New("timeout")))
	assert.Equal(t, 2, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "learncast.logs", pub.topic)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"series malformed": 3, "store failed": 1}, counts)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")
	assert.Equal(t, 0, c.Pending())
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}
