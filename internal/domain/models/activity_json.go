package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"LearnCast/pkg/util"
)

// Message types on the activity topic.
const (
	MessageActivity = "activity"
	MessageProfile  = "profile"
)

// FlexTime decodes RFC3339 strings as well as unix seconds or milliseconds,
// given either as JSON numbers or strings.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s := string(b)
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	parsed, ok := util.ParseTime(s)
	if !ok {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	t.Time = parsed
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// ActivityMessage is the wire form of activity records and profile updates
// shared by the Kafka topic, the remote record store and seed files.
type ActivityMessage struct {
	Type        string   `json:"type,omitempty" validate:"omitempty,oneof=activity profile"`
	LearnerID   string   `json:"learner_id" validate:"required,max=128"`
	Target      string   `json:"target,omitempty" validate:"omitempty,oneof=skill course"`
	TargetID    string   `json:"target_id,omitempty" validate:"max=128"`
	Timestamp   FlexTime `json:"ts"`
	Score       *float64 `json:"score,omitempty"`
	Weight      float64  `json:"weight,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Enrollments []string `json:"enrollments,omitempty"`
	CreatedAt   FlexTime `json:"created_at"`
}

// Complete reports whether an activity message has every field a record needs.
func (m ActivityMessage) Complete() bool {
	return m.Target != "" && m.TargetID != "" && m.Score != nil && !m.Timestamp.IsZero()
}

// IsProfile reports whether the message carries a profile update.
func (m ActivityMessage) IsProfile() bool {
	return m.Type == MessageProfile
}

// Record converts an activity message; the caller validates it first.
func (m ActivityMessage) Record() ActivityRecord {
	var score float64
	if m.Score != nil {
		score = *m.Score
	}
	return ActivityRecord{
		LearnerID: m.LearnerID,
		Target:    TargetKind(m.Target),
		TargetID:  m.TargetID,
		Timestamp: m.Timestamp.Time,
		Score:     score,
		Weight:    m.Weight,
		Kind:      m.Kind,
	}
}

// Profile converts a profile message.
func (m ActivityMessage) Profile() LearnerProfile {
	return LearnerProfile{
		ID:           m.LearnerID,
		Enrollments:  append([]string(nil), m.Enrollments...),
		CreatedAt:    m.CreatedAt.Time,
		LastActiveAt: m.Timestamp.Time,
	}
}

// NewActivityMessage is the inverse of Record.
func NewActivityMessage(r ActivityRecord) ActivityMessage {
	score := r.Score
	return ActivityMessage{
		Type:      MessageActivity,
		LearnerID: r.LearnerID,
		Target:    string(r.Target),
		TargetID:  r.TargetID,
		Timestamp: FlexTime{r.Timestamp},
		Score:     &score,
		Weight:    r.Weight,
		Kind:      r.Kind,
	}
}

// ProfileDTO is the wire form of LearnerProfile used by the remote store and seeds.
type ProfileDTO struct {
	ID           string   `json:"id"`
	Enrollments  []string `json:"enrollments"`
	CreatedAt    FlexTime `json:"created_at"`
	LastActiveAt FlexTime `json:"last_active_at"`
}

func (p ProfileDTO) Profile() LearnerProfile {
	return LearnerProfile{
		ID:           p.ID,
		Enrollments:  append([]string(nil), p.Enrollments...),
		CreatedAt:    p.CreatedAt.Time,
		LastActiveAt: p.LastActiveAt.Time,
	}
}
