package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxHorizonDays bounds integer day-count timeframes.
const MaxHorizonDays = 730

var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Timeframe is a normalized forecast horizon.
type Timeframe struct {
	Token string // canonical token, e.g. "30d" or "1y"
	Days  int
}

var (
	TF7d  = Timeframe{Token: "7d", Days: 7}
	TF30d = Timeframe{Token: "30d", Days: 30}
	TF90d = Timeframe{Token: "90d", Days: 90}
	TF1y  = Timeframe{Token: "1y", Days: 365}
)

// ParseTimeframe accepts "7d", "30d", "90d", "1y", "<N>d" or a bare day count N.
func ParseTimeframe(s string) (Timeframe, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return Timeframe{}, fmt.Errorf("%w: empty", ErrInvalidTimeframe)
	}
	if raw == TF1y.Token {
		return TF1y, nil
	}
	digits := strings.TrimSuffix(raw, "d")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Timeframe{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	if n <= 0 || n > MaxHorizonDays {
		return Timeframe{}, fmt.Errorf("%w: %d days outside 1..%d", ErrInvalidTimeframe, n, MaxHorizonDays)
	}
	return Timeframe{Token: strconv.Itoa(n) + "d", Days: n}, nil
}

// IsValidTimeframe returns true if s parses as a timeframe.
func IsValidTimeframe(s string) bool {
	_, err := ParseTimeframe(s)
	return err == nil
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF30d }

// Horizon returns the timeframe as a duration.
func (t Timeframe) Horizon() time.Duration {
	return time.Duration(t.Days) * 24 * time.Hour
}

func (t Timeframe) String() string { return t.Token }
