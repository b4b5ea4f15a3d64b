package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	applogger "LearnCast/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ActivityRow is the relational form of an activity record.
type ActivityRow struct {
	ID        uint      `gorm:"primarykey"`
	LearnerID string    `gorm:"type:varchar(128);index:idx_activity_learner_ts,priority:1;not null"`
	Target    string    `gorm:"type:varchar(16);not null"`
	TargetID  string    `gorm:"type:varchar(128);not null"`
	Timestamp time.Time `gorm:"column:ts;index:idx_activity_learner_ts,priority:2;not null"`
	Score     float64   `gorm:"not null"`
	Weight    float64   `gorm:"not null;default:1"`
	Kind      string    `gorm:"type:varchar(32)"`
	CreatedAt time.Time
}

func (ActivityRow) TableName() string { return "activity_records" }

// ProfileRow is the relational form of a learner profile.
type ProfileRow struct {
	ID           string   `gorm:"primaryKey;type:varchar(128)"`
	Enrollments  []string `gorm:"serializer:json"`
	CreatedAt    time.Time
	LastActiveAt time.Time
	UpdatedAt    time.Time
}

func (ProfileRow) TableName() string { return "learner_profiles" }

// PostgresConfig holds the pool settings used by OpenPostgres.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// OpenPostgres opens a gorm handle over the pgx driver.
func OpenPostgres(cfg PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return db, nil
}

// GormActivityStore serves activity from any gorm dialect.
type GormActivityStore struct {
	db *gorm.DB
	l  *applogger.Logger
}

func NewGormActivityStore(db *gorm.DB, l *applogger.Logger) *GormActivityStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &GormActivityStore{db: db, l: l}
}

// AutoMigrate creates or updates the tables.
func (s *GormActivityStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&ActivityRow{}, &ProfileRow{})
}

func (s *GormActivityStore) GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error) {
	var row ProfileRow
	err := s.db.WithContext(ctx).Where("id = ?", learnerID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domrepo.ErrProfileNotFound
	}
	if err != nil {
		s.l.Error("postgres get_profile error",
			applogger.String("learner_id", learnerID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &models.LearnerProfile{
		ID:           row.ID,
		Enrollments:  row.Enrollments,
		CreatedAt:    row.CreatedAt.UTC(),
		LastActiveAt: row.LastActiveAt.UTC(),
	}, nil
}

func (s *GormActivityStore) ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error) {
	var rows []ActivityRow
	err := s.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("ts ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		s.l.Error("postgres list_activity error",
			applogger.String("learner_id", learnerID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]models.ActivityRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ActivityRecord{
			LearnerID: r.LearnerID,
			Target:    models.TargetKind(r.Target),
			TargetID:  r.TargetID,
			Timestamp: r.Timestamp.UTC(),
			Score:     r.Score,
			Weight:    r.Weight,
			Kind:      r.Kind,
		})
	}
	return out, nil
}

func (s *GormActivityStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormActivityStore) StoreActivity(ctx context.Context, recs []models.ActivityRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]ActivityRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, ActivityRow{
			LearnerID: r.LearnerID,
			Target:    string(r.Target),
			TargetID:  r.TargetID,
			Timestamp: r.Timestamp.UTC(),
			Score:     r.Score,
			Weight:    r.Weight,
			Kind:      r.Kind,
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, insertChunkSize).Error; err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *GormActivityStore) UpsertProfile(ctx context.Context, p *models.LearnerProfile) error {
	row := ProfileRow{
		ID:           p.ID,
		Enrollments:  p.Enrollments,
		CreatedAt:    p.CreatedAt.UTC(),
		LastActiveAt: p.LastActiveAt.UTC(),
	}
	if row.Enrollments == nil {
		row.Enrollments = []string{}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enrollments", "created_at", "last_active_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

var (
	_ domrepo.ActivityStore  = (*GormActivityStore)(nil)
	_ domrepo.ActivityWriter = (*GormActivityStore)(nil)
)
