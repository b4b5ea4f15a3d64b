package models

import "time"

// TargetKind tells whether an activity record refers to a skill or a course.
type TargetKind string

const (
	TargetSkill  TargetKind = "skill"
	TargetCourse TargetKind = "course"
)

// LearnerProfile is read-only for the prediction engine.
type LearnerProfile struct {
	ID           string
	Enrollments  []string // course ids
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// ActivityRecord is one scored learner event.
// For course targets Score is the cumulative completed fraction of the course.
type ActivityRecord struct {
	LearnerID string
	Target    TargetKind
	TargetID  string
	Timestamp time.Time
	Score     float64
	Weight    float64
	Kind      string // "assessment", "practice", "progress", ...
}

// SeriesPoint is a single observation in a skill or course series.
type SeriesPoint struct {
	At     time.Time
	Value  float64
	Weight float64
}

// SkillSeries holds the observations of one skill in store order.
type SkillSeries struct {
	SkillID      string
	Points       []SeriesPoint
	LastActivity time.Time
	Malformed    bool
	Reason       string
}

// CourseSeries holds the progress observations of one enrolled course.
type CourseSeries struct {
	CourseID     string
	Points       []SeriesPoint
	LastActivity time.Time
	Malformed    bool
	Reason       string
}

// LearnerSignals is the aggregator output consumed by every predictor.
// Built once per request and never mutated afterwards.
type LearnerSignals struct {
	Profile   LearnerProfile
	Skills    []SkillSeries  // sorted by SkillID
	Courses   []CourseSeries // sorted by CourseID
	Clamped   int
	ColdStart bool
}
