package adapter

import "testing"

func TestNewsAdapter(t *testing.T) {
	payload := []byte(`[
		{"id":"n1","headline":"Chipmaker beats estimates","body":"Guidance raised.",
		 "published_at":"2026-03-10","tickers":["NVDA","AMD"],"sentiment":0.8,"engagement":25000,"author":"Wire Desk"},
		{"id":"n2","headline":"","body":"","published_at":"2026-03-11"}
	]`)

	a := &NewsAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1 (empty article skipped)", len(records))
	}
	rec := records[0]
	if got := rec.Get("tickers"); got != "NVDA,AMD" {
		t.Fatalf("tickers=%q", got)
	}
	if got := rec.Get("sentiment"); got != "0.8" {
		t.Fatalf("sentiment=%q", got)
	}
	if got := rec.Get("engagement"); got != "25000" {
		t.Fatalf("engagement=%q", got)
	}
	if got := rec.Get("text"); got != "Chipmaker beats estimates\nGuidance raised." {
		t.Fatalf("text=%q", got)
	}
}

func TestSocialAdapter(t *testing.T) {
	payload := []byte(`{"items":[
		{"id":"p1","author":"@trader","text":"loading up on $TSLA","posted_at":"2026-03-10T09:30:00Z",
		 "tickers":["TSLA"],"sentiment":-0.4},
		{"id":"p2","author":"@quiet","text":""}
	]}`)

	a := &SocialAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1 (empty post skipped)", len(records))
	}
	if got := records[0].Get("sentiment"); got != "-0.4" {
		t.Fatalf("sentiment=%q", got)
	}
	if got := records[0].Get("actor"); got != "@trader" {
		t.Fatalf("actor=%q", got)
	}
}
