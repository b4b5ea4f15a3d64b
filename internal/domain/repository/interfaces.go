package repository

import (
	"context"
	"errors"
	"time"

	"LearnCast/internal/domain/models"
)

// ErrProfileNotFound is returned by stores when the learner has no profile.
var ErrProfileNotFound = errors.New("learner profile not found")

// ActivityStore is the read side of the external learning-record store.
// Records come back in store order: SQL-backed stores sort by timestamp, the
// remote and in-memory stores keep the order they were written in.
type ActivityStore interface {
	GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error)
	ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error)
	Health(ctx context.Context) error
}

// ActivityWriter is implemented by stores that accept ingested records.
type ActivityWriter interface {
	StoreActivity(ctx context.Context, recs []models.ActivityRecord) error
	UpsertProfile(ctx context.Context, p *models.LearnerProfile) error
}

// PredictionEvent is emitted after a prediction is composed.
type PredictionEvent struct {
	LearnerID       string
	Timeframe       string
	Status          models.Status
	Skills          int
	Courses         int
	AtRiskCourses   int
	Recommendations int
	GeneratedAt     time.Time
}

// PredictionPublisher fans prediction events out to downstream consumers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, ev PredictionEvent) error
	Close() error
}

type Metrics interface {
	RecordPrediction(status string)
	RecordDomainStatus(domain, status string)
	RecordRecordsIngested(source string, n int)
	RecordClamped(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
