package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"grifttracker/internal/adapter"
	"grifttracker/internal/config"
	"grifttracker/internal/dedup"
	"grifttracker/internal/repository"
	memoryrepo "grifttracker/internal/repository/memory"
	"grifttracker/internal/resolve"
	"grifttracker/internal/signal"
)

func newTestPipeline(t *testing.T) (*Pipeline, *memoryrepo.Repo) {
	t.Helper()
	repo := memoryrepo.New()
	resolver := resolve.New(repo, config.ResolverConfig{FuzzyThreshold: 0.85, AmbiguityFloor: 0.60}, zap.NewNop())
	if err := resolver.Load(context.Background()); err != nil {
		t.Fatalf("resolver load: %v", err)
	}
	canon := NewCanonicalizer(resolver, zap.NewNop())
	p := New(repo, nil, canon, dedup.NewMemoryStore(), resolver, signal.DefaultRuleset(), config.SourcesConfig{}, zap.NewNop())
	return p, repo
}

const newsPayload = `[
  {
    "id": "a-1",
    "headline": "Chipmakers rally on export news",
    "published_at": "2026-03-15T12:00:00Z",
    "tickers": ["NVDA", "AMD"],
    "sentiment": 0.8,
    "author": "Wire Desk"
  }
]`

func TestIngestPayload_NewsProducesEventsAndSignals(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.IngestPayload(ctx, "newswire", adapter.KindNews, []byte(newsPayload))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Records != 1 {
		t.Fatalf("records=%d want=1", res.Records)
	}
	if res.Events != 2 {
		t.Fatalf("events=%d want=2 (one per ticker)", res.Events)
	}
	if res.Signals != 2 {
		t.Fatalf("signals=%d want=2", res.Signals)
	}

	signals, err := repo.ListSignals(ctx, repository.ListSignalsParams{})
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	for _, s := range signals {
		if s.BaseScore != 1.0 {
			t.Fatalf("base score=%v want=+1 for positive sentiment", s.BaseScore)
		}
	}
}

func TestIngestPayload_SecondPushIsAllDuplicates(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	if _, err := p.IngestPayload(ctx, "newswire", adapter.KindNews, []byte(newsPayload)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := p.IngestPayload(ctx, "other-wire", adapter.KindNews, []byte(newsPayload))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.Events != 0 {
		t.Fatalf("events=%d want=0 on replay", res.Events)
	}
	if res.Duplicates != 2 {
		t.Fatalf("duplicates=%d want=2", res.Duplicates)
	}
	if res.Signals != 0 {
		t.Fatalf("signals=%d want=0, duplicates must not re-score", res.Signals)
	}
}

func TestIngestPayload_PriceBars(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	payload := `[
	  {
	    "symbol": "AAPL",
	    "bars": [
	      {"date": "2026-03-13", "open": 180.1, "high": 182.0, "low": 179.3, "close": 181.75},
	      {"date": "2026-03-14", "open": 181.8, "high": 183.2, "low": 181.0, "close": 182.4}
	    ]
	  }
	]`
	res, err := p.IngestPayload(ctx, "daily-prices", adapter.KindPrice, []byte(payload))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.PriceBars != 2 {
		t.Fatalf("price_bars=%d want=2", res.PriceBars)
	}

	// The feed also registers the instrument for later filings.
	entity, err := repo.GetEntityBySymbol(ctx, "AAPL")
	if err != nil || entity == nil {
		t.Fatalf("price feed did not register AAPL: %v", err)
	}
}

func TestIngestPayload_BadPayloadRecordsFailure(t *testing.T) {
	p, repo := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestPayload(ctx, "newswire", adapter.KindNews, []byte("{not json"))
	if err == nil {
		t.Fatal("want parse error")
	}
	failures, lerr := repo.ListIngestFailures(ctx, repository.ListFailuresParams{Source: "newswire"})
	if lerr != nil {
		t.Fatalf("list failures: %v", lerr)
	}
	if len(failures) != 1 {
		t.Fatalf("failures=%d want=1", len(failures))
	}
	if failures[0].Stage != "parse" {
		t.Fatalf("stage=%s want=parse", failures[0].Stage)
	}
}

func TestIngestPayload_UnknownKind(t *testing.T) {
	p, _ := newTestPipeline(t)
	if _, err := p.IngestPayload(context.Background(), "x", adapter.Kind("bogus"), []byte("[]")); err == nil {
		t.Fatal("want error for unknown kind")
	}
}
