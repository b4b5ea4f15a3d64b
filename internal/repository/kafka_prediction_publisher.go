package repository

import (
	"context"
	"time"

	domrepo "LearnCast/internal/domain/repository"
	pkgkafka "LearnCast/pkg/kafka"
)

// publisher is the slice of pkg/kafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPredictionPublisher emits one summary event per composed prediction,
// keyed by learner so a learner's events stay ordered.
type KafkaPredictionPublisher struct {
	producer publisher
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

type predictionEventJSON struct {
	LearnerID       string    `json:"learner_id"`
	Timeframe       string    `json:"timeframe"`
	Status          string    `json:"status"`
	Skills          int       `json:"skills"`
	Courses         int       `json:"courses"`
	AtRiskCourses   int       `json:"at_risk_courses"`
	Recommendations int       `json:"recommendations"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func (p *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, ev domrepo.PredictionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.LearnerID), predictionEventJSON{
		LearnerID:       ev.LearnerID,
		Timeframe:       ev.Timeframe,
		Status:          string(ev.Status),
		Skills:          ev.Skills,
		Courses:         ev.Courses,
		AtRiskCourses:   ev.AtRiskCourses,
		Recommendations: ev.Recommendations,
		GeneratedAt:     ev.GeneratedAt.UTC(),
	})
}

func (p *KafkaPredictionPublisher) Close() error {
	return p.producer.Close()
}

// NopPredictionPublisher drops events when Kafka is disabled.
type NopPredictionPublisher struct{}

func (NopPredictionPublisher) PublishPrediction(context.Context, domrepo.PredictionEvent) error {
	return nil
}

func (NopPredictionPublisher) Close() error { return nil }

var (
	_ domrepo.PredictionPublisher = (*KafkaPredictionPublisher)(nil)
	_ domrepo.PredictionPublisher = NopPredictionPublisher{}
)
