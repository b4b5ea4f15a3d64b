package analytics

import (
	"time"

	"LearnCast/pkg/config"
)

// Params holds every tunable constant of the prediction models.
type Params struct {
	// trend fit
	HalfLife     time.Duration
	DampingDays  float64
	StableBand   float64 // |slope| * 30 below this is "stable"
	NeutralPrior float64

	// confidence band
	BandZ        float64
	MinSigma     float64
	MinHalfWidth float64
	MaxHalfWidth float64

	// mastery
	Thresholds       map[string]float64
	DefaultThreshold float64 // 0 disables the fallback

	// completion
	CompletionPrior     float64
	CompletionFloor     float64
	CompletionSteepness float64
	RiskFloor           float64

	// ranking
	TopN                int
	UrgencyWeight       float64
	LeverageWeight      float64
	RecencyWeight       float64
	StalenessScaleDays  float64
	ReinforcementMargin float64
	HighLeverage        float64
	Importance          map[string]float64 // keyed by "skill:<id>" or "course:<id>"
}

// DefaultParams returns the model defaults.
func DefaultParams() Params {
	return Params{
		HalfLife:            14 * 24 * time.Hour,
		DampingDays:         10,
		StableBand:          0.03,
		NeutralPrior:        0.5,
		BandZ:               1.28,
		MinSigma:            0.05,
		MinHalfWidth:        0.02,
		MaxHalfWidth:        0.5,
		Thresholds:          map[string]float64{},
		DefaultThreshold:    0.8,
		CompletionPrior:     0.3,
		CompletionFloor:     0.02,
		CompletionSteepness: 6,
		RiskFloor:           0.4,
		TopN:                5,
		UrgencyWeight:       0.5,
		LeverageWeight:      0.3,
		RecencyWeight:       0.2,
		StalenessScaleDays:  7,
		ReinforcementMargin: 0.2,
		HighLeverage:        1.5,
		Importance:          map[string]float64{},
	}
}

// ParamsFromConfig overlays the prediction section of cfg on the defaults.
// Zero values in the config keep the default.
func ParamsFromConfig(cfg *config.Config) Params {
	p := DefaultParams()
	if cfg == nil {
		return p
	}
	pc := cfg.Prediction
	setDur(&p.HalfLife, pc.HalfLife)
	setF(&p.DampingDays, pc.DampingDays)
	setF(&p.StableBand, pc.StableBand)
	setF(&p.NeutralPrior, pc.NeutralPrior)
	setF(&p.BandZ, pc.Band.Z)
	setF(&p.MinSigma, pc.Band.MinSigma)
	setF(&p.MinHalfWidth, pc.Band.MinHalfWidth)
	setF(&p.MaxHalfWidth, pc.Band.MaxHalfWidth)
	if pc.Mastery.DefaultThreshold != nil {
		p.DefaultThreshold = *pc.Mastery.DefaultThreshold
	}
	for k, v := range pc.Mastery.Thresholds {
		p.Thresholds[k] = v
	}
	setF(&p.CompletionPrior, pc.Completion.Prior)
	setF(&p.CompletionFloor, pc.Completion.Floor)
	setF(&p.CompletionSteepness, pc.Completion.Steepness)
	setF(&p.RiskFloor, pc.Completion.RiskFloor)
	if pc.Ranking.TopN > 0 {
		p.TopN = pc.Ranking.TopN
	}
	setF(&p.UrgencyWeight, pc.Ranking.UrgencyWeight)
	setF(&p.LeverageWeight, pc.Ranking.LeverageWeight)
	setF(&p.RecencyWeight, pc.Ranking.RecencyWeight)
	setF(&p.StalenessScaleDays, pc.Ranking.StalenessScaleDays)
	setF(&p.ReinforcementMargin, pc.Ranking.ReinforcementMargin)
	setF(&p.HighLeverage, pc.Ranking.HighLeverage)
	for k, v := range pc.Ranking.Importance {
		p.Importance[k] = v
	}
	return p
}

func setF(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// ThresholdFor returns the mastery threshold of a topic.
func (p Params) ThresholdFor(topic string) (float64, bool) {
	if v, ok := p.Thresholds[topic]; ok {
		return v, true
	}
	if p.DefaultThreshold > 0 {
		return p.DefaultThreshold, true
	}
	return 0, false
}

// ImportanceFor returns the leverage weight of a candidate key, default 1.
func (p Params) ImportanceFor(key string) float64 {
	if v, ok := p.Importance[key]; ok && v > 0 {
		return v
	}
	return 1
}
