package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	xhttp "LearnCast/pkg/http"
	applogger "LearnCast/pkg/logger"
)

// HTTPStoreConfig configures the remote learning-record store client.
type HTTPStoreConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// HTTPActivityStore reads profiles and activity from a remote REST store.
type HTTPActivityStore struct {
	cfg    HTTPStoreConfig
	client *xhttp.Client
	l      *applogger.Logger
}

func NewHTTPActivityStore(cfg HTTPStoreConfig, l *applogger.Logger, opts ...xhttp.ClientOption) *HTTPActivityStore {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if cfg.Timeout > 0 {
		opts = append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPActivityStore{cfg: cfg, client: xhttp.NewClient(opts...), l: l}
}

func (s *HTTPActivityStore) GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error) {
	var dto models.ProfileDTO
	if err := s.get(ctx, s.learnerURL(learnerID, "profile"), &dto); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, domrepo.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if dto.ID == "" {
		dto.ID = learnerID
	}
	p := dto.Profile()
	return &p, nil
}

// ListActivity keeps the remote order; incomplete messages are dropped.
func (s *HTTPActivityStore) ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error) {
	var msgs []models.ActivityMessage
	if err := s.get(ctx, s.learnerURL(learnerID, "activity"), &msgs); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return []models.ActivityRecord{}, nil
		}
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out := make([]models.ActivityRecord, 0, len(msgs))
	dropped := 0
	for _, m := range msgs {
		if m.LearnerID == "" {
			m.LearnerID = learnerID
		}
		if !m.Complete() {
			dropped++
			continue
		}
		out = append(out, m.Record())
	}
	if dropped > 0 {
		s.l.Warn("remote store returned incomplete records",
			applogger.String("learner_id", learnerID),
			applogger.Int("dropped", dropped),
		)
	}
	return out, nil
}

func (s *HTTPActivityStore) Health(ctx context.Context) error {
	return s.get(ctx, s.cfg.BaseURL+"/healthz", nil)
}

func (s *HTTPActivityStore) learnerURL(learnerID, resource string) string {
	return s.cfg.BaseURL + "/learners/" + url.PathEscape(learnerID) + "/" + resource
}

// get retries transport errors and temporary statuses with exponential backoff.
func (s *HTTPActivityStore) get(ctx context.Context, u string, dest interface{}) error {
	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     u,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if s.cfg.Token != "" {
		opts.Headers["Authorization"] = "Bearer " + s.cfg.Token
	}

	backoff := s.cfg.Backoff
	var err error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		err = s.client.SendAndParse(ctx, opts, dest)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			break
		}
		if attempt == s.cfg.Attempts {
			break
		}
		s.l.Debug("remote store request retry",
			applogger.String("url", u),
			applogger.Int("attempt", attempt),
			applogger.Error(err),
		)
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

var _ domrepo.ActivityStore = (*HTTPActivityStore)(nil)
