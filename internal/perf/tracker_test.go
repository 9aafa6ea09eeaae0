package perf

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grifttracker/internal/config"
	"grifttracker/internal/models"
	memoryrepo "grifttracker/internal/repository/memory"
)

func newTestTracker(repo *memoryrepo.Repo) *Tracker {
	return NewTracker(repo, config.PerfConfig{NoiseThresholdPct: 0.5}, zap.NewNop())
}

func seedPriceWorld(t *testing.T, repo *memoryrepo.Repo, openClose, checkClose string) *models.Suggestion {
	t.Helper()
	ctx := context.Background()
	if err := repo.CreateEntity(ctx, &models.Entity{
		ID: "ent-1", Symbol: "AAPL", AssetType: models.AssetTypeStock,
	}); err != nil {
		t.Fatalf("create entity: %v", err)
	}
	open := decimal.RequireFromString(openClose)
	check := decimal.RequireFromString(checkClose)
	err := repo.UpsertPriceBars(ctx, []models.PriceBar{
		{Symbol: "AAPL", Day: "2026-03-20", Open: open, High: open, Low: open, Close: open},
		{Symbol: "AAPL", Day: "2026-03-27", Open: check, High: check, Low: check, Close: check},
	})
	if err != nil {
		t.Fatalf("upsert bars: %v", err)
	}
	s := &models.Suggestion{
		EntityID:       "ent-1",
		Recommendation: models.RecommendationLong,
		AggregateScore: 5,
		Confidence:     0.5,
		WindowStart:    time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		WindowEnd:      time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.InsertSuggestion(ctx, s); err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}
	return s
}

func TestEvaluate_LongHit(t *testing.T) {
	repo := memoryrepo.New()
	s := seedPriceWorld(t, repo, "100", "103")

	rec, err := newTestTracker(repo).Evaluate(context.Background(), s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Outcome != models.OutcomeHit {
		t.Fatalf("outcome=%s want=hit", rec.Outcome)
	}
	if !rec.ReturnPercent.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("return=%s want=3", rec.ReturnPercent)
	}
}

func TestEvaluate_LongMissOnDrop(t *testing.T) {
	repo := memoryrepo.New()
	s := seedPriceWorld(t, repo, "100", "96")

	rec, err := newTestTracker(repo).Evaluate(context.Background(), s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Outcome != models.OutcomeMiss {
		t.Fatalf("outcome=%s want=miss", rec.Outcome)
	}
}

func TestEvaluate_ShortHitOnDrop(t *testing.T) {
	repo := memoryrepo.New()
	s := seedPriceWorld(t, repo, "100", "96")
	s.Recommendation = models.RecommendationShort

	rec, err := newTestTracker(repo).Evaluate(context.Background(), s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Outcome != models.OutcomeHit {
		t.Fatalf("outcome=%s want=hit", rec.Outcome)
	}
}

func TestEvaluate_InsideNoiseBandIsNeutral(t *testing.T) {
	repo := memoryrepo.New()
	// +0.3% move, below the 0.5% threshold.
	s := seedPriceWorld(t, repo, "100", "100.3")

	rec, err := newTestTracker(repo).Evaluate(context.Background(), s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Outcome != models.OutcomeNeutral {
		t.Fatalf("outcome=%s want=neutral", rec.Outcome)
	}
}

func TestEvaluate_WatchAlwaysNeutral(t *testing.T) {
	repo := memoryrepo.New()
	s := seedPriceWorld(t, repo, "100", "120")
	s.Recommendation = models.RecommendationWatch

	rec, err := newTestTracker(repo).Evaluate(context.Background(), s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.Outcome != models.OutcomeNeutral {
		t.Fatalf("outcome=%s want=neutral", rec.Outcome)
	}
}

func TestEvaluate_SameDayRecheckOverwrites(t *testing.T) {
	repo := memoryrepo.New()
	s := seedPriceWorld(t, repo, "100", "103")
	tracker := newTestTracker(repo)
	ctx := context.Background()
	checkedAt := time.Date(2026, 3, 27, 9, 0, 0, 0, time.UTC)

	if _, err := tracker.Evaluate(ctx, s, checkedAt); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// A later re-check the same day must replace, not duplicate.
	if _, err := tracker.Evaluate(ctx, s, checkedAt.Add(6*time.Hour)); err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	records, err := repo.ListPerformanceRecords(ctx, s.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1", len(records))
	}
}

func TestEvaluate_MissingPriceData(t *testing.T) {
	repo := memoryrepo.New()
	ctx := context.Background()
	if err := repo.CreateEntity(ctx, &models.Entity{
		ID: "ent-1", Symbol: "NOPX", AssetType: models.AssetTypeStock,
	}); err != nil {
		t.Fatalf("create entity: %v", err)
	}
	s := &models.Suggestion{
		EntityID:       "ent-1",
		Recommendation: models.RecommendationLong,
		WindowEnd:      time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.InsertSuggestion(ctx, s); err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}

	if _, err := newTestTracker(repo).Evaluate(ctx, s, time.Date(2026, 3, 27, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("want error when no price bars exist")
	}
}
