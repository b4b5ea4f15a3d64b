package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
)

// MemoryActivityStore keeps profiles and records in process. Records are
// returned in insertion order, which is the store order the aggregator sees.
type MemoryActivityStore struct {
	mu       sync.RWMutex
	profiles map[string]models.LearnerProfile
	records  map[string][]models.ActivityRecord
}

func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{
		profiles: make(map[string]models.LearnerProfile),
		records:  make(map[string][]models.ActivityRecord),
	}
}

// SeedFile is the JSON layout accepted by LoadSeed.
type SeedFile struct {
	Profiles []models.ProfileDTO      `json:"profiles"`
	Activity []models.ActivityMessage `json:"activity"`
}

// LoadSeed reads a JSON fixture into the store.
func (s *MemoryActivityStore) LoadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	ctx := context.Background()
	for _, p := range seed.Profiles {
		prof := p.Profile()
		if err := s.UpsertProfile(ctx, &prof); err != nil {
			return err
		}
	}
	recs := make([]models.ActivityRecord, 0, len(seed.Activity))
	for _, m := range seed.Activity {
		recs = append(recs, m.Record())
	}
	return s.StoreActivity(ctx, recs)
}

func (s *MemoryActivityStore) GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[learnerID]
	if !ok {
		return nil, domrepo.ErrProfileNotFound
	}
	p.Enrollments = append([]string(nil), p.Enrollments...)
	return &p, nil
}

func (s *MemoryActivityStore) ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ActivityRecord(nil), s.records[learnerID]...), nil
}

func (s *MemoryActivityStore) Health(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryActivityStore) StoreActivity(ctx context.Context, recs []models.ActivityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.records[r.LearnerID] = append(s.records[r.LearnerID], r)
		if p, ok := s.profiles[r.LearnerID]; ok && r.Timestamp.After(p.LastActiveAt) {
			p.LastActiveAt = r.Timestamp
			s.profiles[r.LearnerID] = p
		}
	}
	return nil
}

func (s *MemoryActivityStore) UpsertProfile(ctx context.Context, p *models.LearnerProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.ID == "" {
		return fmt.Errorf("upsert profile: empty id")
	}
	cp := *p
	cp.Enrollments = append([]string(nil), p.Enrollments...)
	s.mu.Lock()
	s.profiles[p.ID] = cp
	s.mu.Unlock()
	return nil
}

var (
	_ domrepo.ActivityStore  = (*MemoryActivityStore)(nil)
	_ domrepo.ActivityWriter = (*MemoryActivityStore)(nil)
)
