package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryActivityStore()
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertProfile(ctx, &models.LearnerProfile{ID: "u1", Enrollments: []string{"c1"}}))
	require.NoError(t, s.StoreActivity(ctx, []models.ActivityRecord{
		{LearnerID: "u1", Target: models.TargetSkill, TargetID: "s1", Timestamp: t0.Add(48 * time.Hour), Score: 0.5},
		{LearnerID: "u1", Target: models.TargetSkill, TargetID: "s1", Timestamp: t0, Score: 0.4},
	}))

	recs, err := s.ListActivity(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 0.5, recs[0].Score)
	assert.Equal(t, 0.4, recs[1].Score)

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(48*time.Hour), p.LastActiveAt)

	p.Enrollments[0] = "mutated"
	again, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.Enrollments)
}

func TestMemoryStoreUnknownLearner(t *testing.T) {
	s := NewMemoryActivityStore()
	_, err := s.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, domrepo.ErrProfileNotFound)

	recs, err := s.ListActivity(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryActivityStore().ListActivity(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	doc := `{
		"profiles": [{"id": "u1", "enrollments": ["c1"], "created_at": "2026-01-01T00:00:00Z"}],
		"activity": [
			{"learner_id": "u1", "target": "skill", "target_id": "algebra", "ts": 1767571200, "score": 0.6, "weight": 1},
			{"learner_id": "u1", "target": "course", "target_id": "c1", "ts": "2026-01-06T00:00:00Z", "score": 0.25}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s := NewMemoryActivityStore()
	require.NoError(t, s.LoadSeed(path))

	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, p.Enrollments)

	recs, err := s.ListActivity(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.TargetSkill, recs[0].Target)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), recs[0].Timestamp)
	assert.Equal(t, models.TargetCourse, recs[1].Target)
}

func TestLoadSeedMissingFile(t *testing.T) {
	err := NewMemoryActivityStore().LoadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
