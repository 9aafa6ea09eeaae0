package adapter

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NewsAdapter maps article JSON into RawRecords with headline/body text
// and the optional source-provided sentiment score.
type NewsAdapter struct {
	Logger *zap.Logger
}

func (a *NewsAdapter) Kind() Kind { return KindNews }

type newsItem struct {
	ID          string   `json:"id"`
	Headline    string   `json:"headline"`
	Body        string   `json:"body"`
	PublishedAt string   `json:"published_at"`
	Tickers     []string `json:"tickers"`
	Sentiment   *float64 `json:"sentiment"`
	Engagement  *float64 `json:"engagement"`
	Author      string   `json:"author"`
}

func (a *NewsAdapter) Parse(payload []byte) ([]RawRecord, error) {
	items, err := decodeItems[newsItem](payload)
	if err != nil {
		return nil, fmt.Errorf("news feed: %w", err)
	}

	records := make([]RawRecord, 0, len(items))
	for i, it := range items {
		if it.Headline == "" && it.Body == "" {
			if a.Logger != nil {
				a.Logger.Warn("news feed: empty article skipped", zap.Int("index", i))
			}
			continue
		}
		text := it.Headline
		if it.Body != "" {
			text = strings.TrimSpace(it.Headline + "\n" + it.Body)
		}
		rec := RawRecord{
			"item_id": it.ID,
			"text":    text,
			"date":    it.PublishedAt,
			"tickers": strings.Join(it.Tickers, ","),
			"actor":   it.Author,
		}
		if it.Sentiment != nil {
			rec["sentiment"] = strconv.FormatFloat(*it.Sentiment, 'f', -1, 64)
		}
		if it.Engagement != nil {
			rec["engagement"] = strconv.FormatFloat(*it.Engagement, 'f', -1, 64)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SocialAdapter maps post JSON into RawRecords. Same contract as news,
// with engagement carrying the post's like/repost metric.
type SocialAdapter struct {
	Logger *zap.Logger
}

func (a *SocialAdapter) Kind() Kind { return KindSocial }

type socialItem struct {
	ID         string   `json:"id"`
	Author     string   `json:"author"`
	Text       string   `json:"text"`
	PostedAt   string   `json:"posted_at"`
	Tickers    []string `json:"tickers"`
	Sentiment  *float64 `json:"sentiment"`
	Engagement *float64 `json:"engagement"`
}

func (a *SocialAdapter) Parse(payload []byte) ([]RawRecord, error) {
	items, err := decodeItems[socialItem](payload)
	if err != nil {
		return nil, fmt.Errorf("social feed: %w", err)
	}

	records := make([]RawRecord, 0, len(items))
	for i, it := range items {
		if it.Text == "" {
			if a.Logger != nil {
				a.Logger.Warn("social feed: empty post skipped", zap.Int("index", i))
			}
			continue
		}
		rec := RawRecord{
			"item_id": it.ID,
			"actor":   it.Author,
			"text":    it.Text,
			"date":    it.PostedAt,
			"tickers": strings.Join(it.Tickers, ","),
		}
		if it.Sentiment != nil {
			rec["sentiment"] = strconv.FormatFloat(*it.Sentiment, 'f', -1, 64)
		}
		if it.Engagement != nil {
			rec["engagement"] = strconv.FormatFloat(*it.Engagement, 'f', -1, 64)
		}
		records = append(records, rec)
	}
	return records, nil
}
