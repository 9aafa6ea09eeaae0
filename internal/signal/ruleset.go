package signal

import (
	"time"

	"grifttracker/internal/config"
)

// Ruleset is the versioned set of scoring constants. Signals record the
// version they were produced under so historical rows stay interpretable
// after the constants change.
type Ruleset struct {
	Version string

	OptionBonus float64

	LegislativeBase     float64
	CosponsorThreshold  int
	CosponsorMultiplier float64

	SentimentUnit        float64
	EngagementThreshold  float64
	EngagementMultiplier float64

	CoTradeWindow     time.Duration
	CoTradeMultiplier float64

	CryptoBasket []string
	HalfLifeDays float64
}

func DefaultRuleset() Ruleset {
	return Ruleset{
		Version:              "v1",
		OptionBonus:          1.0,
		LegislativeBase:      2.0,
		CosponsorThreshold:   50,
		CosponsorMultiplier:  1.3,
		SentimentUnit:        1.0,
		EngagementThreshold:  10000,
		EngagementMultiplier: 1.5,
		CoTradeWindow:        168 * time.Hour,
		CoTradeMultiplier:    1.5,
		CryptoBasket:         []string{"BTC", "ETH"},
		HalfLifeDays:         7,
	}
}

// FromConfig builds a Ruleset from configuration, falling back to the
// default value for any field left unset.
func FromConfig(cfg config.RulesConfig) Ruleset {
	rs := DefaultRuleset()
	if cfg.Version != "" {
		rs.Version = cfg.Version
	}
	if cfg.OptionBonus > 0 {
		rs.OptionBonus = cfg.OptionBonus
	}
	if cfg.LegislativeBase > 0 {
		rs.LegislativeBase = cfg.LegislativeBase
	}
	if cfg.CosponsorThreshold > 0 {
		rs.CosponsorThreshold = cfg.CosponsorThreshold
	}
	if cfg.CosponsorMultiplier > 0 {
		rs.CosponsorMultiplier = cfg.CosponsorMultiplier
	}
	if cfg.SentimentUnit > 0 {
		rs.SentimentUnit = cfg.SentimentUnit
	}
	if cfg.EngagementThreshold > 0 {
		rs.EngagementThreshold = cfg.EngagementThreshold
	}
	if cfg.EngagementMultiplier > 0 {
		rs.EngagementMultiplier = cfg.EngagementMultiplier
	}
	if cfg.CoTradeWindow > 0 {
		rs.CoTradeWindow = cfg.CoTradeWindow
	}
	if cfg.CoTradeMultiplier > 0 {
		rs.CoTradeMultiplier = cfg.CoTradeMultiplier
	}
	if len(cfg.CryptoBasket) > 0 {
		rs.CryptoBasket = cfg.CryptoBasket
	}
	if cfg.HalfLifeDays > 0 {
		rs.HalfLifeDays = cfg.HalfLifeDays
	}
	return rs
}
