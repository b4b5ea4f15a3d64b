package usecase

import (
	"errors"
	"testing"

	"LearnCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequestAcceptsTimeframes(t *testing.T) {
	cases := map[string]int{
		"7d":   7,
		"30d":  30,
		"90d":  90,
		"1y":   365,
		"14":   14,
		"45d":  45,
		"730d": 730,
		" 1Y ": 365,
	}
	for tf, days := range cases {
		req, err := ValidateRequest(PredictParams{UserID: " u1 ", Timeframe: tf, Flags: models.AllFlags()})
		require.NoError(t, err, tf)
		assert.Equal(t, days, req.Timeframe.Days, tf)
		assert.Equal(t, "u1", req.LearnerID)
		assert.Equal(t, models.AllFlags(), req.Flags)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	cases := []struct {
		name  string
		p     PredictParams
		field string
	}{
		{"missing user", PredictParams{Timeframe: "30d"}, "userId"},
		{"blank user", PredictParams{UserID: "   ", Timeframe: "30d"}, "userId"},
		{"missing timeframe", PredictParams{UserID: "u1"}, "timeframe"},
		{"zero", PredictParams{UserID: "u1", Timeframe: "0d"}, "timeframe"},
		{"negative", PredictParams{UserID: "u1", Timeframe: "-5"}, "timeframe"},
		{"unknown token", PredictParams{UserID: "u1", Timeframe: "2w"}, "timeframe"},
		{"above bound", PredictParams{UserID: "u1", Timeframe: "731"}, "timeframe"},
		{"garbage", PredictParams{UserID: "u1", Timeframe: "soon"}, "timeframe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateRequest(tc.p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidRequest))

			var pe *models.PredictionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}
