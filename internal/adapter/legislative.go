package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// LegislativeAdapter maps bill/vote JSON into RawRecords carrying sponsor,
// cosponsor count, subject tags and stance.
type LegislativeAdapter struct {
	Logger *zap.Logger
}

func (a *LegislativeAdapter) Kind() Kind { return KindLegislative }

type legislativeItem struct {
	BillID     string   `json:"bill_id"`
	Title      string   `json:"title"`
	Sponsor    string   `json:"sponsor"`
	Cosponsors []string `json:"cosponsors"`
	// Some feeds provide only the count.
	CosponsorCount *int     `json:"cosponsor_count"`
	Subjects       []string `json:"subjects"`
	Stance         string   `json:"stance"`
	Ticker         string   `json:"ticker"`
	Sector         string   `json:"sector"`
	ActionDate     string   `json:"action_date"`
	Text           string   `json:"text"`
}

func (a *LegislativeAdapter) Parse(payload []byte) ([]RawRecord, error) {
	items, err := decodeItems[legislativeItem](payload)
	if err != nil {
		return nil, fmt.Errorf("legislative feed: %w", err)
	}

	records := make([]RawRecord, 0, len(items))
	for i, it := range items {
		if it.BillID == "" && it.Title == "" {
			if a.Logger != nil {
				a.Logger.Warn("legislative feed: item without bill id or title skipped", zap.Int("index", i))
			}
			continue
		}
		count := len(it.Cosponsors)
		if it.CosponsorCount != nil {
			count = *it.CosponsorCount
		}
		text := it.Text
		if text == "" {
			text = it.Title
		}
		records = append(records, RawRecord{
			"bill_id":         it.BillID,
			"actor":           it.Sponsor,
			"cosponsor_count": strconv.Itoa(count),
			"subjects":        strings.Join(it.Subjects, ","),
			"stance":          strings.ToLower(it.Stance),
			"ticker":          it.Ticker,
			"sector":          it.Sector,
			"date":            it.ActionDate,
			"text":            text,
		})
	}
	return records, nil
}

// decodeItems accepts either a bare JSON array or an {"items": [...]}
// wrapper, which covers every feed shape seen so far.
func decodeItems[T any](payload []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}
	var wrapper struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Items, nil
}
