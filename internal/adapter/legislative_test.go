package adapter

import "testing"

func TestLegislativeAdapter_WrappedItems(t *testing.T) {
	payload := []byte(`{"items":[
		{"bill_id":"hr-1234","title":"Semiconductor Support Act","sponsor":"Jane Doe",
		 "cosponsor_count":72,"subjects":["technology","manufacturing"],"stance":"support",
		 "ticker":"INTC","action_date":"2026-03-10","text":"A bill to fund domestic fabs."},
		{"title":"Crypto Oversight Act","sponsor":"John Roe",
		 "cosponsors":["a","b","c"],"stance":"OPPOSE","sector":"financials","action_date":"2026-03-12"},
		{"sponsor":"nobody"}
	]}`)

	a := &LegislativeAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want=2 (untitled item skipped)", len(records))
	}
	if got := records[0].Get("cosponsor_count"); got != "72" {
		t.Fatalf("cosponsor_count=%q", got)
	}
	if got := records[1].Get("cosponsor_count"); got != "3" {
		t.Fatalf("counted cosponsors=%q want=3", got)
	}
	if got := records[1].Get("stance"); got != "oppose" {
		t.Fatalf("stance=%q", got)
	}
	// Text falls back to the title.
	if got := records[1].Get("text"); got != "Crypto Oversight Act" {
		t.Fatalf("text=%q", got)
	}
}

func TestLegislativeAdapter_BareArray(t *testing.T) {
	payload := []byte(`[{"bill_id":"s-99","title":"T","sponsor":"X","stance":"support","action_date":"2026-01-05"}]`)
	a := &LegislativeAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1", len(records))
	}
}

func TestLegislativeAdapter_BadJSON(t *testing.T) {
	a := &LegislativeAdapter{}
	if _, err := a.Parse([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}
