package analytics

import (
	"math"
	"sort"
	"time"

	"LearnCast/internal/domain/models"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/services/features"

	"github.com/google/uuid"
)

// actionNamespace scopes the name-based action ids.
var actionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("learncast/recommendations"))

// RecommendationRanker draws candidate actions from weak skills, at-risk
// courses and skills sitting just above their threshold, then ranks them by
// urgency, leverage and staleness.
type RecommendationRanker struct {
	p Params
}

func NewRecommendationRanker(p Params) *RecommendationRanker {
	return &RecommendationRanker{p: p}
}

type candidate struct {
	key       string
	kind      models.TargetKind
	targetID  string
	action    string
	rationale string
	urgency   float64
	leverage  float64
	staleness float64
}

func (r *RecommendationRanker) Rank(h domsvc.Horizon, in domsvc.RankInput) []models.Recommendation {
	cands := r.skillCandidates(h, in)
	cands = append(cands, r.courseCandidates(h, in)...)
	if len(cands) == 0 {
		return []models.Recommendation{}
	}

	recs := make([]models.Recommendation, 0, len(cands))
	for _, c := range cands {
		score := r.p.UrgencyWeight*c.urgency + r.p.LeverageWeight*c.leverage + r.p.RecencyWeight*c.staleness
		recs = append(recs, models.Recommendation{
			ActionID:   actionID(in.LearnerID, c.key, c.action),
			Action:     c.action,
			TargetType: c.kind,
			TargetID:   c.targetID,
			Score:      score,
			Rationale:  c.rationale,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return candidateKey(recs[i].TargetType, recs[i].TargetID) < candidateKey(recs[j].TargetType, recs[j].TargetID)
	})

	if n := r.p.TopN; n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs
}

func (r *RecommendationRanker) skillCandidates(h domsvc.Horizon, in domsvc.RankInput) []candidate {
	mastery := make(map[string]models.MasteryEstimate, len(in.Mastery))
	for _, m := range in.Mastery {
		mastery[m.TopicID] = m
	}

	var out []candidate
	for _, t := range in.Trajectories {
		if t.Status != models.StatusOK {
			continue
		}
		threshold, prob, ok := r.masteryFor(t, mastery)
		if !ok {
			continue
		}
		key := candidateKey(models.TargetSkill, t.SkillID)
		leverage := r.p.ImportanceFor(key)

		c := candidate{
			key:       key,
			kind:      models.TargetSkill,
			targetID:  t.SkillID,
			urgency:   1 - prob,
			leverage:  leverage,
			staleness: staleness(h, t.LastActivity, r.p.StalenessScaleDays),
		}
		below := t.Forecast < threshold
		switch {
		case below && t.Trend == models.TrendDeclining:
			c.action, c.rationale = models.ActionPracticeSkill, models.RationaleAtRisk
		case below && t.Trend == models.TrendInsufficientData:
			c.action, c.rationale = models.ActionAssessSkill, models.RationaleExploration
			if leverage >= r.p.HighLeverage {
				c.rationale = models.RationaleHighLeverage
			}
		case !below && prob >= 0.5 && prob < 0.5+r.p.ReinforcementMargin:
			c.action, c.rationale = models.ActionReviewSkill, models.RationaleReinforcement
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

// masteryFor prefers the estimator's output and falls back to the configured
// threshold when the mastery domain did not produce one.
func (r *RecommendationRanker) masteryFor(t models.SkillTrajectory, mastery map[string]models.MasteryEstimate) (threshold, prob float64, ok bool) {
	if m, found := mastery[t.SkillID]; found && m.Status == models.StatusOK {
		return m.Threshold, m.Probability, true
	}
	threshold, ok = r.p.ThresholdFor(t.SkillID)
	if !ok {
		return 0, 0, false
	}
	return threshold, MasteryProbability(t.Forecast, t.HalfWidth, threshold), true
}

func (r *RecommendationRanker) courseCandidates(h domsvc.Horizon, in domsvc.RankInput) []candidate {
	var out []candidate
	for _, c := range in.Courses {
		if c.Status != models.StatusOK || !c.AtRisk {
			continue
		}
		key := candidateKey(models.TargetCourse, c.CourseID)
		out = append(out, candidate{
			key:       key,
			kind:      models.TargetCourse,
			targetID:  c.CourseID,
			action:    models.ActionResumeCourse,
			rationale: models.RationaleAtRisk,
			urgency:   1 - c.Probability,
			leverage:  r.p.ImportanceFor(key),
			staleness: staleness(h, c.LastActivity, r.p.StalenessScaleDays),
		})
	}
	return out
}

// staleness grows towards 1 the longer an item was left untouched: d/(d+scale).
func staleness(h domsvc.Horizon, last time.Time, scaleDays float64) float64 {
	if last.IsZero() {
		return 1
	}
	d := math.Max(features.DaysBetween(last, h.Now), 0)
	if scaleDays <= 0 {
		return 1
	}
	return d / (d + scaleDays)
}

func candidateKey(kind models.TargetKind, id string) string {
	return string(kind) + ":" + id
}

func actionID(learnerID, key, action string) string {
	return uuid.NewSHA1(actionNamespace, []byte(learnerID+"|"+key+"|"+action)).String()
}

var _ domsvc.RecommendationRanker = (*RecommendationRanker)(nil)
