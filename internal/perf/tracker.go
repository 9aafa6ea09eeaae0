package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grifttracker/internal/config"
	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

// Tracker grades past suggestions against later closing prices. A long is
// a hit when price rose past the noise threshold, a short when it fell;
// moves inside the threshold are neutral, and watch recommendations are
// always neutral. One record per suggestion per calendar day; re-checks
// on the same day overwrite rather than accumulate.
type Tracker struct {
	repo   repository.Repository
	logger *zap.Logger

	noiseThresholdPct decimal.Decimal
}

func NewTracker(repo repository.Repository, cfg config.PerfConfig, logger *zap.Logger) *Tracker {
	pct := cfg.NoiseThresholdPct
	if pct <= 0 {
		pct = 0.5
	}
	return &Tracker{
		repo:              repo,
		logger:            logger,
		noiseThresholdPct: decimal.NewFromFloat(pct),
	}
}

// Evaluate grades one suggestion as of checkedAt. Missing price data is
// reported, not invented.
func (t *Tracker) Evaluate(ctx context.Context, suggestion *models.Suggestion, checkedAt time.Time) (*models.PerformanceRecord, error) {
	entity, err := t.repo.GetEntityByID(ctx, suggestion.EntityID)
	if err != nil {
		return nil, fmt.Errorf("evaluate suggestion %d: %w", suggestion.ID, err)
	}
	if entity == nil {
		return nil, fmt.Errorf("evaluate suggestion %d: entity %s not found", suggestion.ID, suggestion.EntityID)
	}

	openPrice, err := t.closeOn(ctx, entity.Symbol, suggestion.WindowEnd)
	if err != nil {
		return nil, err
	}
	checkPrice, err := t.closeOn(ctx, entity.Symbol, checkedAt)
	if err != nil {
		return nil, err
	}
	if openPrice.IsZero() {
		return nil, fmt.Errorf("evaluate suggestion %d: zero price at suggestion for %s", suggestion.ID, entity.Symbol)
	}

	hundred := decimal.NewFromInt(100)
	returnPct := checkPrice.Sub(openPrice).Div(openPrice).Mul(hundred)

	record := &models.PerformanceRecord{
		SuggestionID:      suggestion.ID,
		EntityID:          suggestion.EntityID,
		PriceAtSuggestion: openPrice,
		PriceAtCheck:      checkPrice,
		ReturnPercent:     returnPct,
		Outcome:           t.grade(suggestion.Recommendation, returnPct),
		CheckedOn:         checkedAt.UTC().Format("2006-01-02"),
		CheckedAt:         checkedAt,
	}
	if err := t.repo.UpsertPerformanceRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("evaluate suggestion %d: upsert: %w", suggestion.ID, err)
	}
	return record, nil
}

// RunAll grades the latest suggestion of every entity that has one.
func (t *Tracker) RunAll(ctx context.Context, checkedAt time.Time) (int, error) {
	ids, err := t.repo.ListEntityIDsWithSignals(ctx, checkedAt)
	if err != nil {
		return 0, fmt.Errorf("performance run: %w", err)
	}
	var graded int
	for _, id := range ids {
		if ctx.Err() != nil {
			return graded, ctx.Err()
		}
		suggestion, err := t.repo.LatestSuggestionForEntity(ctx, id)
		if err != nil {
			t.logger.Error("load latest suggestion failed", zap.String("entity_id", id), zap.Error(err))
			continue
		}
		if suggestion == nil || !suggestion.WindowEnd.Before(checkedAt) {
			continue
		}
		if _, err := t.Evaluate(ctx, suggestion, checkedAt); err != nil {
			t.logger.Warn("grading skipped", zap.String("entity_id", id), zap.Error(err))
			continue
		}
		graded++
	}
	return graded, nil
}

func (t *Tracker) grade(recommendation string, returnPct decimal.Decimal) string {
	if recommendation == models.RecommendationWatch {
		return models.OutcomeNeutral
	}
	if returnPct.Abs().LessThan(t.noiseThresholdPct) {
		return models.OutcomeNeutral
	}
	rose := returnPct.IsPositive()
	switch {
	case recommendation == models.RecommendationLong && rose,
		recommendation == models.RecommendationShort && !rose:
		return models.OutcomeHit
	default:
		return models.OutcomeMiss
	}
}

// closeOn returns the closing price on the bar at or nearest before day.
func (t *Tracker) closeOn(ctx context.Context, symbol string, day time.Time) (decimal.Decimal, error) {
	from := day.AddDate(0, 0, -7)
	bars, err := t.repo.ListPriceBars(ctx, symbol, from, day)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return decimal.Zero, fmt.Errorf("no price bars for %s on or before %s", symbol, day.UTC().Format("2006-01-02"))
	}
	best := bars[0]
	for _, b := range bars[1:] {
		if b.Day > best.Day {
			best = b
		}
	}
	return best.Close, nil
}
