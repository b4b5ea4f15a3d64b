package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	applogger "LearnCast/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu        sync.Mutex
	committed []int64
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type flakyHandler struct {
	failures int
	calls    int
	err      error
}

func (h *flakyHandler) Topic() string { return "activity" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func testConsumer(h MessageHandler, retry int) (*Consumer, *fakeFetcher) {
	c := newConsumer(&ConsumerConfig{
		WorkerCount: 1,
		BufferSize:  1,
		RetryMax:    retry,
		BackoffMin:  time.Millisecond,
		BackoffMax:  time.Millisecond,
		Logger:      applogger.NewNop(),
	})
	c.RegisterHandler(h)
	f := &fakeFetcher{}
	c.readers[h.Topic()] = f
	return c, f
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	h := &flakyHandler{failures: 2, err: errors.New("store busy")}
	c, f := testConsumer(h, 3)

	c.process(context.Background(), &message{topic: "activity", km: kafka.Message{Offset: 7}})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, []int64{7}, f.committed)
}

func TestConsumerDeadLettersExhaustedMessages(t *testing.T) {
	h := &flakyHandler{failures: 10, err: errors.New("store down")}
	c, f := testConsumer(h, 1)
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.cfg.DLQTopic = "activity.dlq"

	c.process(context.Background(), &message{topic: "activity", km: kafka.Message{Offset: 3, Value: []byte(`{}`)}})

	assert.Equal(t, 2, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "activity.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, "activity", string(dlq.msgs[0].Headers[0].Value))
	assert.Equal(t, []int64{3}, f.committed)
}

func TestConsumerSkipsRetryForPermanentErrors(t *testing.T) {
	h := &flakyHandler{failures: 10, err: fmt.Errorf("decode: %w", ErrPermanent)}
	c, f := testConsumer(h, 5)

	c.process(context.Background(), &message{topic: "activity", km: kafka.Message{Offset: 9}})

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, []int64{9}, f.committed)
}

func TestConsumerLeavesTransientFailuresUncommitted(t *testing.T) {
	h := &flakyHandler{failures: 10, err: errors.New("timeout")}
	c, f := testConsumer(h, 0)

	c.process(context.Background(), &message{topic: "activity", km: kafka.Message{Offset: 1}})

	assert.Empty(t, f.committed)
}

func TestHookChainRecoversPanics(t *testing.T) {
	var after []string
	chain := NewHookChain(
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "first") }},
		HookFuncs{
			Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
				panic("bad hook")
			},
			After: func(context.Context, string, kafka.Message, []byte, error) { after = append(after, "second") },
		},
	)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)

	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"second", "first"}, after)
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "predictions", []byte("u1"), map[string]int{"n": 1}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "u1", string(w.msgs[0].Key))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "logs", w.msgs[1].Topic)

	w.err = errors.New("broker gone")
	assert.Error(t, p.Publish(context.Background(), "predictions", nil, "x"))
}
