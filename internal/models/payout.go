package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PayoutMode is how a song's stream revenue is distributed to listeners.
type PayoutMode string

const (
	// PayoutProportional splits revenue continuously as streams accrue.
	PayoutProportional PayoutMode = "proportional"
	// PayoutJackpot pays a lump sum once the stream threshold is reached.
	PayoutJackpot PayoutMode = "jackpot"
)

const (
	// DefaultStreamThreshold replaces threshold input that is not an integer.
	DefaultStreamThreshold = 1000
	// DefaultArtistPercentage replaces percentage input that is not a number.
	DefaultArtistPercentage = 50.0
)

// ParsePayoutMode accepts a mode name in any case.
func ParsePayoutMode(s string) (PayoutMode, error) {
	switch PayoutMode(strings.ToLower(strings.TrimSpace(s))) {
	case PayoutProportional:
		return PayoutProportional, nil
	case PayoutJackpot:
		return PayoutJackpot, nil
	}
	return "", fmt.Errorf("unknown payout mode %q (want proportional or jackpot)", s)
}

func (m PayoutMode) String() string { return string(m) }

// ClampThreshold parses text as a stream threshold.
//
// Text that is not an integer becomes [DefaultStreamThreshold]. The result is never below min, and a negative
// min is treated as zero so thresholds stay non-negative.
func ClampThreshold(text string, min int) int {
	if min < 0 {
		min = 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		v = DefaultStreamThreshold
	}
	return max(v, min)
}

// ClampPercentage parses text as an artist percentage in [0,100].
//
// Text that is not a finite number becomes [DefaultArtistPercentage].
func ClampPercentage(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) {
		v = DefaultArtistPercentage
	}
	return math.Min(100, math.Max(0, v))
}
