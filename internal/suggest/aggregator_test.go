package suggest

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"grifttracker/internal/canonical"
	"grifttracker/internal/config"
	"grifttracker/internal/models"
	"grifttracker/internal/notify"
	memoryrepo "grifttracker/internal/repository/memory"
	"grifttracker/internal/signal"
)

type captureNotifier struct {
	calls []*models.Suggestion
}

func (n *captureNotifier) SuggestionChanged(_ context.Context, _, next *models.Suggestion) {
	n.calls = append(n.calls, next)
}

func newTestAggregator(repo *memoryrepo.Repo, notifier *captureNotifier) *Aggregator {
	cfg := config.AggregatorConfig{
		LongThreshold:       4.0,
		ConfidenceDivisor:   10.0,
		RationaleTopN:       3,
		ConfidenceAlertStep: 0.25,
	}
	// Avoid wrapping a nil *captureNotifier in a non-nil interface value.
	var n notify.Notifier
	if notifier != nil {
		n = notifier
	}
	return NewAggregator(repo, signal.DefaultRuleset(), cfg, n, nil, zap.NewNop())
}

func seedEntity(t *testing.T, repo *memoryrepo.Repo, id, symbol string) {
	t.Helper()
	err := repo.CreateEntity(context.Background(), &models.Entity{
		ID: id, Symbol: symbol, AssetType: models.AssetTypeStock,
	})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
}

func seedTrade(t *testing.T, repo *memoryrepo.Repo, eventID, actorID, entityID string, base float64, at time.Time) {
	t.Helper()
	ctx := context.Background()
	actor := actorID
	entity := entityID
	action := canonical.ActionBuy
	if base < 0 {
		action = canonical.ActionSell
	}
	_, err := repo.InsertEvent(ctx, &models.Event{
		ID:          eventID,
		Source:      "test",
		ActorRef:    &actor,
		EntityRef:   &entity,
		Action:      action,
		RawText:     eventID,
		OccurredAt:  at,
		ContentHash: "hash-" + eventID,
	})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	err = repo.InsertSignal(ctx, &models.Signal{
		EventID:        eventID,
		EntityID:       entityID,
		BaseScore:      base,
		RulesetVersion: "v1",
		Reasoning:      "trade " + eventID,
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("insert signal: %v", err)
	}
}

func TestAggregate_NoSignals(t *testing.T) {
	repo := memoryrepo.New()
	agg := newTestAggregator(repo, nil)
	got, err := agg.Aggregate(context.Background(), "missing", time.Now().UTC())
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v want nil,nil", got, err)
	}
}

func TestAggregate_ThresholdInclusive(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "AAPL")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 4.0, asOf)

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if s.Recommendation != models.RecommendationLong {
		t.Fatalf("score exactly at threshold: got=%s want=long", s.Recommendation)
	}
	if math.Abs(s.Confidence-0.4) > 1e-9 {
		t.Fatalf("confidence=%v want=0.4", s.Confidence)
	}
}

func TestAggregate_JustBelowThresholdIsWatch(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "AAPL")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 3.99, asOf)

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if s.Recommendation != models.RecommendationWatch {
		t.Fatalf("got=%s want=watch", s.Recommendation)
	}
}

func TestAggregate_ShortSide(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "TSLA")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", -5.0, asOf)

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if s.Recommendation != models.RecommendationShort {
		t.Fatalf("got=%s want=short", s.Recommendation)
	}
	if math.Abs(s.Confidence-0.5) > 1e-9 {
		t.Fatalf("confidence=%v want=0.5", s.Confidence)
	}
}

func TestAggregate_HalfLifeDecay(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "AAPL")
	// One half-life old: 8 decays to 4, still long.
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 8.0, asOf.AddDate(0, 0, -7))

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if math.Abs(s.AggregateScore-4.0) > 1e-9 {
		t.Fatalf("score=%v want=4", s.AggregateScore)
	}
	if s.Recommendation != models.RecommendationLong {
		t.Fatalf("got=%s want=long", s.Recommendation)
	}
}

func TestAggregate_CoTradeAmplification(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "NVDA")
	// Three members buy within the same week: each contribution x1.5.
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 3.0, asOf)
	seedTrade(t, repo, "ev-2", "act-2", "ent-1", 3.0, asOf.Add(-24*time.Hour))
	seedTrade(t, repo, "ev-3", "act-3", "ent-1", 3.0, asOf.Add(-48*time.Hour))

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	// Mild decay on the older two keeps the total just under the raw 13.5.
	if s.AggregateScore < 12 || s.AggregateScore > 13.5 {
		t.Fatalf("score=%v want within (12, 13.5]", s.AggregateScore)
	}
	if s.Recommendation != models.RecommendationLong {
		t.Fatalf("got=%s want=long", s.Recommendation)
	}
	if s.Confidence != 1.0 {
		t.Fatalf("confidence=%v want capped at 1.0", s.Confidence)
	}
}

func TestAggregate_SameActorNotAmplified(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "NVDA")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 2.0, asOf)
	seedTrade(t, repo, "ev-2", "act-1", "ent-1", 2.0, asOf.Add(-time.Hour))

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if s.AggregateScore > 4.001 {
		t.Fatalf("score=%v, same-actor trades must not amplify", s.AggregateScore)
	}
}

func TestAggregate_OppositeDirectionsNotAmplified(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "NVDA")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 3.0, asOf)
	seedTrade(t, repo, "ev-2", "act-2", "ent-1", -3.0, asOf.Add(-time.Hour))

	agg := newTestAggregator(repo, nil)
	s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if math.Abs(s.AggregateScore) > 1e-9 {
		t.Fatalf("score=%v want=0 (opposite sides cancel, no amplification)", s.AggregateScore)
	}
	if s.Recommendation != models.RecommendationWatch {
		t.Fatalf("got=%s want=watch", s.Recommendation)
	}
}

func TestAggregate_DeterministicRationale(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	build := func() string {
		repo := memoryrepo.New()
		seedEntity(t, repo, "ent-1", "AAPL")
		seedTrade(t, repo, "ev-1", "act-1", "ent-1", 2.0, asOf)
		seedTrade(t, repo, "ev-2", "act-2", "ent-1", 2.0, asOf)
		seedTrade(t, repo, "ev-3", "act-3", "ent-1", 2.0, asOf)
		agg := newTestAggregator(repo, nil)
		s, err := agg.Aggregate(context.Background(), "ent-1", asOf)
		if err != nil {
			t.Fatalf("aggregate: %v", err)
		}
		return s.Rationale
	}
	first := build()
	for i := 0; i < 5; i++ {
		if got := build(); got != first {
			t.Fatalf("rationale not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
}

func TestAggregate_NotifiesOnMaterialChange(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "AAPL")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 5.0, asOf)

	notifier := &captureNotifier{}
	agg := newTestAggregator(repo, notifier)
	ctx := context.Background()

	// First run: long out of nowhere is material.
	if _, err := agg.Aggregate(ctx, "ent-1", asOf); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("calls=%d want=1", len(notifier.calls))
	}

	// Second run at the same instant: same verdict, no new alert.
	if _, err := agg.Aggregate(ctx, "ent-1", asOf); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("calls=%d want still 1", len(notifier.calls))
	}

	// Two half-lives later the long decays away to watch: material again.
	if _, err := agg.Aggregate(ctx, "ent-1", asOf.AddDate(0, 0, 14)); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("calls=%d want=2", len(notifier.calls))
	}
}

func TestRunAll(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	repo := memoryrepo.New()
	seedEntity(t, repo, "ent-1", "AAPL")
	seedEntity(t, repo, "ent-2", "TSLA")
	seedTrade(t, repo, "ev-1", "act-1", "ent-1", 5.0, asOf)
	seedTrade(t, repo, "ev-2", "act-2", "ent-2", -5.0, asOf)

	agg := newTestAggregator(repo, nil)
	n, err := agg.RunAll(context.Background(), asOf)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if n != 2 {
		t.Fatalf("generated=%d want=2", n)
	}
}
