package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	pkgkafka "LearnCast/pkg/kafka"
	applogger "LearnCast/pkg/logger"
	"LearnCast/pkg/metrics"

	"github.com/go-playground/validator/v10"
)

// KafkaActivityHandler writes activity records and profile updates consumed
// from Kafka into the activity store. A payload is one message or a JSON array.
type KafkaActivityHandler struct {
	topic    string
	writer   domrepo.ActivityWriter
	metrics  domrepo.Metrics
	l        *applogger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewKafkaActivityHandler(topic string, writer domrepo.ActivityWriter, m domrepo.Metrics, l *applogger.Logger) *KafkaActivityHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaActivityHandler{topic: topic, writer: writer, metrics: m, l: l, validate: paramsValidator, now: time.Now}
}

func (h *KafkaActivityHandler) Topic() string { return h.topic }

func (h *KafkaActivityHandler) Handle(ctx context.Context, b []byte) error {
	msgs, err := decodeActivity(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}

	recs := make([]models.ActivityRecord, 0, len(msgs))
	for i, m := range msgs {
		if err := h.validate.Struct(m); err != nil {
			h.metrics.RecordError("consumer_validate")
			return fmt.Errorf("%w: message %d: %v", pkgkafka.ErrPermanent, i, err)
		}
		if m.IsProfile() {
			p := m.Profile()
			if err := h.writer.UpsertProfile(ctx, &p); err != nil {
				h.metrics.RecordError("consumer_store")
				return fmt.Errorf("upsert profile %s: %w", p.ID, err)
			}
			continue
		}
		if !m.Complete() {
			h.metrics.RecordError("consumer_validate")
			return fmt.Errorf("%w: message %d: incomplete activity record", pkgkafka.ErrPermanent, i)
		}
		recs = append(recs, m.Record())
	}
	if len(recs) == 0 {
		return nil
	}

	start := h.now()
	if err := h.writer.StoreActivity(ctx, recs); err != nil {
		h.metrics.RecordError("consumer_store")
		return fmt.Errorf("store activity: %w", err)
	}
	h.metrics.RecordLatency("ingest_store_seconds", h.now().Sub(start).Seconds())
	h.metrics.RecordRecordsIngested("kafka", len(recs))
	h.l.Debug("activity ingested",
		applogger.String("learner_id", recs[0].LearnerID),
		applogger.Int("records", len(recs)),
	)
	return nil
}

func decodeActivity(b []byte) ([]models.ActivityMessage, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var msgs []models.ActivityMessage
		if err := json.Unmarshal(b, &msgs); err != nil {
			return nil, fmt.Errorf("decode activity batch: %w", err)
		}
		return msgs, nil
	}
	var m models.ActivityMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return []models.ActivityMessage{m}, nil
}

var _ pkgkafka.MessageHandler = (*KafkaActivityHandler)(nil)
