package models

import "time"

// Request and response shapes of the predictions endpoints. Kept next to the
// domain types so the CLI and the HTTP handler share them.

type PredictionRequest struct {
	UserID                 string `param:"id" query:"userId" json:"userId" validate:"required,max=128"`
	Timeframe              string `query:"timeframe" json:"timeframe" validate:"required,max=16"`
	IncludeSkills          *bool  `query:"skills" json:"includeSkills" default:"true"`
	IncludeCourses         *bool  `query:"courses" json:"includeCourses" default:"true"`
	IncludeMastery         *bool  `query:"mastery" json:"includeMastery" default:"true"`
	IncludeRecommendations *bool  `query:"recommendations" json:"includeRecommendations" default:"true"`
}

// Flags resolves the optional inclusion flags; unset flags count as true.
func (r *PredictionRequest) Flags() Flags {
	return Flags{
		Skills:          boolOr(r.IncludeSkills, true),
		Courses:         boolOr(r.IncludeCourses, true),
		Mastery:         boolOr(r.IncludeMastery, true),
		Recommendations: boolOr(r.IncludeRecommendations, true),
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type PredictionResponse struct {
	LearnerID       string                  `json:"learnerId"`
	Timeframe       string                  `json:"timeframe"`
	HorizonDays     int                     `json:"horizonDays"`
	GeneratedAt     time.Time               `json:"generatedAt"`
	Status          Status                  `json:"status"`
	ColdStart       bool                    `json:"coldStart,omitempty"`
	Skills          *SkillsSection          `json:"skills,omitempty"`
	Courses         *CoursesSection         `json:"courses,omitempty"`
	Mastery         *MasterySection         `json:"mastery,omitempty"`
	Recommendations *RecommendationsSection `json:"recommendations,omitempty"`
}

type SkillsSection struct {
	Status Status               `json:"status"`
	Reason string               `json:"reason,omitempty"`
	Items  []SkillTrajectoryDTO `json:"items"`
}

type SkillTrajectoryDTO struct {
	SkillID      string  `json:"skillId"`
	Forecast     float64 `json:"forecast"`
	Low          float64 `json:"low"`
	High         float64 `json:"high"`
	Trend        string  `json:"trend"`
	Observations int     `json:"observations"`
	Status       Status  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
}

type CoursesSection struct {
	Status Status                `json:"status"`
	Reason string                `json:"reason,omitempty"`
	Items  []CoursePredictionDTO `json:"items"`
}

type CoursePredictionDTO struct {
	CourseID           string     `json:"courseId"`
	Probability        float64    `json:"probability"`
	ExpectedCompletion *time.Time `json:"expectedCompletion"`
	AtRisk             bool       `json:"atRisk"`
	Progress           float64    `json:"progress"`
	Status             Status     `json:"status"`
	Reason             string     `json:"reason,omitempty"`
}

type MasterySection struct {
	Status Status               `json:"status"`
	Reason string               `json:"reason,omitempty"`
	Items  []MasteryEstimateDTO `json:"items"`
}

type MasteryEstimateDTO struct {
	TopicID      string     `json:"topicId"`
	Threshold    float64    `json:"threshold,omitempty"`
	Probability  float64    `json:"probability"`
	ExpectedDate *time.Time `json:"expectedDate"`
	Status       Status     `json:"status"`
	Reason       string     `json:"reason,omitempty"`
}

type RecommendationsSection struct {
	Status Status              `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Items  []RecommendationDTO `json:"items"`
}

type RecommendationDTO struct {
	ActionID   string     `json:"actionId"`
	Action     string     `json:"action"`
	TargetType TargetKind `json:"targetType"`
	TargetID   string     `json:"targetId"`
	Score      float64    `json:"score"`
	Rationale  string     `json:"rationale"`
}

// NewPredictionResponse maps a result onto its wire shape.
func NewPredictionResponse(r *PredictionResult) *PredictionResponse {
	if r == nil {
		return nil
	}
	out := &PredictionResponse{
		LearnerID:   r.LearnerID,
		Timeframe:   r.Timeframe,
		HorizonDays: r.HorizonDays,
		GeneratedAt: r.GeneratedAt,
		Status:      r.Status,
		ColdStart:   r.ColdStart,
	}
	if d := r.Skills; d != nil {
		s := &SkillsSection{Status: d.Status, Reason: d.Reason, Items: make([]SkillTrajectoryDTO, 0, len(d.Items))}
		for _, t := range d.Items {
			s.Items = append(s.Items, SkillTrajectoryDTO{
				SkillID:      t.SkillID,
				Forecast:     t.Forecast,
				Low:          t.Low,
				High:         t.High,
				Trend:        t.Trend,
				Observations: t.Observations,
				Status:       t.Status,
				Reason:       t.Reason,
			})
		}
		out.Skills = s
	}
	if d := r.Courses; d != nil {
		s := &CoursesSection{Status: d.Status, Reason: d.Reason, Items: make([]CoursePredictionDTO, 0, len(d.Items))}
		for _, c := range d.Items {
			s.Items = append(s.Items, CoursePredictionDTO{
				CourseID:           c.CourseID,
				Probability:        c.Probability,
				ExpectedCompletion: c.ExpectedCompletion,
				AtRisk:             c.AtRisk,
				Progress:           c.Progress,
				Status:             c.Status,
				Reason:             c.Reason,
			})
		}
		out.Courses = s
	}
	if d := r.Mastery; d != nil {
		s := &MasterySection{Status: d.Status, Reason: d.Reason, Items: make([]MasteryEstimateDTO, 0, len(d.Items))}
		for _, m := range d.Items {
			s.Items = append(s.Items, MasteryEstimateDTO{
				TopicID:      m.TopicID,
				Threshold:    m.Threshold,
				Probability:  m.Probability,
				ExpectedDate: m.ExpectedDate,
				Status:       m.Status,
				Reason:       m.Reason,
			})
		}
		out.Mastery = s
	}
	if d := r.Recommendations; d != nil {
		s := &RecommendationsSection{Status: d.Status, Reason: d.Reason, Items: make([]RecommendationDTO, 0, len(d.Items))}
		for _, rec := range d.Items {
			s.Items = append(s.Items, RecommendationDTO(rec))
		}
		out.Recommendations = s
	}
	return out
}
