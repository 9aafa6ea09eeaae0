package signal

import (
	"math"
	"time"
)

// Decayed returns the time-decayed contribution of a base score: an
// exponential half-life curve, so a signal at exactly one half-life
// contributes half its base. Age below zero (clock skew) decays nothing.
func Decayed(base float64, age time.Duration, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return base
	}
	ageDays := age.Hours() / 24
	if ageDays <= 0 {
		return base
	}
	return base * math.Pow(0.5, ageDays/halfLifeDays)
}
