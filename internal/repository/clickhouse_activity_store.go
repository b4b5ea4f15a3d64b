package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	pkgch "LearnCast/pkg/clickhouse"
	applogger "LearnCast/pkg/logger"
)

const (
	activityTable = "activity_records"
	profileTable  = "learner_profiles"

	insertChunkSize = 2000
)

// ActivitySchema returns the DDL for the ClickHouse activity store.
func ActivitySchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + activityTable + ` (
			learner_id String,
			target LowCardinality(String),
			target_id String,
			ts DateTime64(3, 'UTC'),
			score Float64,
			weight Float64,
			kind LowCardinality(String),
			ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = MergeTree
		ORDER BY (learner_id, ts)`,
		`CREATE TABLE IF NOT EXISTS ` + profileTable + ` (
			id String,
			enrollments Array(String),
			created_at DateTime64(3, 'UTC'),
			last_active_at DateTime64(3, 'UTC'),
			updated_at DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY id`,
	}
}

// CHActivityStore reads and writes learner activity in ClickHouse.
type CHActivityStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHActivityStore(ch *pkgch.Client, l *applogger.Logger) *CHActivityStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHActivityStore{db: ch.DB(), l: l}
}

func (s *CHActivityStore) GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error) {
	const q = `
		SELECT id, enrollments, created_at, last_active_at
		FROM ` + profileTable + ` FINAL
		WHERE id = ?
		LIMIT 1
	`
	var p models.LearnerProfile
	err := s.db.QueryRowContext(ctx, q, learnerID).Scan(&p.ID, &p.Enrollments, &p.CreatedAt, &p.LastActiveAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrProfileNotFound
	}
	if err != nil {
		s.l.Error("clickhouse get_profile error",
			applogger.String("learner_id", learnerID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *CHActivityStore) ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error) {
	start := time.Now()
	const q = `
		SELECT learner_id, target, target_id, ts, score, weight, kind
		FROM ` + activityTable + `
		WHERE learner_id = ?
		ORDER BY ts ASC
	`
	rows, err := s.db.QueryContext(ctx, q, learnerID)
	if err != nil {
		s.l.Error("clickhouse list_activity query error",
			applogger.String("learner_id", learnerID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := make([]models.ActivityRecord, 0, 256)
	for rows.Next() {
		var (
			r      models.ActivityRecord
			target string
		)
		if err := rows.Scan(&r.LearnerID, &target, &r.TargetID, &r.Timestamp, &r.Score, &r.Weight, &r.Kind); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		r.Target = models.TargetKind(target)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse list_activity ok",
		applogger.String("learner_id", learnerID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHActivityStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// StoreActivity inserts records with multi-row VALUES statements.
func (s *CHActivityStore) StoreActivity(ctx context.Context, recs []models.ActivityRecord) error {
	for start := 0; start < len(recs); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(recs) {
			end = len(recs)
		}
		q, args := buildActivityInsert(recs[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_activity error",
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("insert activity: %w", err)
		}
	}
	return nil
}

// buildActivityInsert skips records without a learner or target id.
func buildActivityInsert(recs []models.ActivityRecord) (string, []interface{}) {
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*7)
	for _, r := range recs {
		if r.LearnerID == "" || r.TargetID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.LearnerID, string(r.Target), r.TargetID, r.Timestamp.UTC(), r.Score, r.Weight, r.Kind)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (learner_id, target, target_id, ts, score, weight, kind) VALUES %s",
		activityTable, strings.Join(values, ","))
	return q, args
}

// UpsertProfile relies on ReplacingMergeTree to keep the newest row per id.
func (s *CHActivityStore) UpsertProfile(ctx context.Context, p *models.LearnerProfile) error {
	const q = `INSERT INTO ` + profileTable + ` (id, enrollments, created_at, last_active_at) VALUES (?, ?, ?, ?)`
	enrollments := p.Enrollments
	if enrollments == nil {
		enrollments = []string{}
	}
	if _, err := s.db.ExecContext(ctx, q, p.ID, enrollments, p.CreatedAt.UTC(), p.LastActiveAt.UTC()); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

var (
	_ domrepo.ActivityStore  = (*CHActivityStore)(nil)
	_ domrepo.ActivityWriter = (*CHActivityStore)(nil)
)
