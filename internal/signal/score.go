package signal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grifttracker/internal/canonical"
	"grifttracker/internal/models"
)

// Score computes the base score for one event against one entity. Pure:
// no storage, no clock. Positive scores lean long, negative lean short.
// Returns ok=false for events that carry no directional information.
func Score(event *models.Event, entity *models.Entity, rs Ruleset) (score float64, reasoning string, ok bool) {
	switch event.Action {
	case canonical.ActionBuy, canonical.ActionSell, canonical.ActionExercise:
		return scoreTrade(event, entity, rs)
	case canonical.ActionVote:
		return scoreLegislative(event, rs)
	case canonical.ActionStatement:
		return scoreSentiment(event, rs)
	default:
		return 0, "", false
	}
}

func scoreTrade(event *models.Event, entity *models.Entity, rs Ruleset) (float64, string, bool) {
	if event.AmountBucket == nil {
		return 0, "", false
	}
	bucket := canonical.AmountBucket(*event.AmountBucket)
	base := canonical.BucketScore(bucket)
	if base == 0 {
		return 0, "", false
	}

	direction := 1.0
	verb := "bought"
	if event.Action == canonical.ActionSell {
		direction = -1
		verb = "sold"
	}
	score := direction * base
	parts := []string{fmt.Sprintf("%s %s (%s bucket, base %.1f)", verb, entity.Symbol, bucket, base)}
	if entity.AssetType == models.AssetTypeOption || event.Action == canonical.ActionExercise {
		score += direction * rs.OptionBonus
		parts = append(parts, fmt.Sprintf("option position bonus %+.1f", direction*rs.OptionBonus))
	}
	return score, strings.Join(parts, "; "), true
}

func scoreLegislative(event *models.Event, rs Ruleset) (float64, string, bool) {
	meta := decodeMeta(event.Metadata)
	stance := strings.ToLower(meta["stance"])
	var score float64
	switch stance {
	case "support", "favorable", "for":
		score = rs.LegislativeBase
	case "oppose", "unfavorable", "against":
		score = -rs.LegislativeBase
	default:
		return 0, "", false
	}
	parts := []string{fmt.Sprintf("legislative %s (%+.1f)", stance, score)}
	if n := metaInt(meta, "cosponsor_count"); n >= rs.CosponsorThreshold {
		score *= rs.CosponsorMultiplier
		parts = append(parts, fmt.Sprintf("%d cosponsors, x%.1f", n, rs.CosponsorMultiplier))
	}
	return score, strings.Join(parts, "; "), true
}

func scoreSentiment(event *models.Event, rs Ruleset) (float64, string, bool) {
	meta := decodeMeta(event.Metadata)
	sentiment, present := metaFloat(meta, "sentiment")
	if !present || sentiment == 0 {
		return 0, "", false
	}
	score := rs.SentimentUnit
	label := "positive"
	if sentiment < 0 {
		score = -rs.SentimentUnit
		label = "negative"
	}
	parts := []string{fmt.Sprintf("%s sentiment %.2f (%+.1f)", label, sentiment, score)}
	if eng, has := metaFloat(meta, "engagement"); has && eng >= rs.EngagementThreshold {
		score *= rs.EngagementMultiplier
		parts = append(parts, fmt.Sprintf("high engagement %.0f, x%.1f", eng, rs.EngagementMultiplier))
	}
	return score, strings.Join(parts, "; "), true
}

func decodeMeta(raw []byte) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return out
	}
	for k, v := range generic {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out
}

func metaFloat(meta map[string]string, key string) (float64, bool) {
	raw, ok := meta[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func metaInt(meta map[string]string, key string) int {
	f, ok := metaFloat(meta, key)
	if !ok {
		return 0
	}
	return int(f)
}
