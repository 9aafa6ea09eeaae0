package suggest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"grifttracker/internal/canonical"
	"grifttracker/internal/classifier"
	"grifttracker/internal/config"
	"grifttracker/internal/models"
	"grifttracker/internal/notify"
	"grifttracker/internal/repository"
	"grifttracker/internal/signal"
)

// Aggregator folds an entity's signal history into a single suggestion:
// decay each base score to the asOf instant, amplify co-occurring trades,
// sum, and map the total onto long/short/watch. Decay is computed here
// from base scores every run, so the same history aggregated at two
// different instants gives two honest answers.
type Aggregator struct {
	repo     repository.Repository
	ruleset  signal.Ruleset
	notifier notify.Notifier
	clf      *classifier.Client
	logger   *zap.Logger

	longThreshold     float64
	confidenceDivisor float64
	rationaleTopN     int
	alertStep         float64
}

func NewAggregator(repo repository.Repository, rs signal.Ruleset, cfg config.AggregatorConfig, notifier notify.Notifier, clf *classifier.Client, logger *zap.Logger) *Aggregator {
	a := &Aggregator{
		repo:              repo,
		ruleset:           rs,
		notifier:          notifier,
		clf:               clf,
		logger:            logger,
		longThreshold:     cfg.LongThreshold,
		confidenceDivisor: cfg.ConfidenceDivisor,
		rationaleTopN:     cfg.RationaleTopN,
		alertStep:         cfg.ConfidenceAlertStep,
	}
	if a.longThreshold <= 0 {
		a.longThreshold = 4.0
	}
	if a.confidenceDivisor <= 0 {
		a.confidenceDivisor = 10.0
	}
	if a.rationaleTopN <= 0 {
		a.rationaleTopN = 3
	}
	if a.alertStep <= 0 {
		a.alertStep = 0.2
	}
	return a
}

type contribution struct {
	sig       models.Signal
	decayed   float64
	amplified bool
}

// Aggregate produces and stores a suggestion for one entity as of the
// given instant. Returns nil with no error when the entity has no signals
// in the window.
func (a *Aggregator) Aggregate(ctx context.Context, entityID string, asOf time.Time) (*models.Suggestion, error) {
	signals, err := a.repo.ListSignals(ctx, repository.ListSignalsParams{EntityID: entityID, Until: &asOf})
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: list signals: %w", entityID, err)
	}
	if len(signals) == 0 {
		return nil, nil
	}

	eventIDs := make([]string, 0, len(signals))
	for _, s := range signals {
		eventIDs = append(eventIDs, s.EventID)
	}
	events, err := a.repo.ListEventsByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: list events: %w", entityID, err)
	}
	eventsByID := make(map[string]models.Event, len(events))
	for _, ev := range events {
		eventsByID[ev.ID] = ev
	}

	amplified := a.coOccurring(signals, eventsByID)

	contribs := make([]contribution, 0, len(signals))
	windowStart := asOf
	var total float64
	for _, s := range signals {
		d := signal.Decayed(s.BaseScore, asOf.Sub(s.CreatedAt), a.ruleset.HalfLifeDays)
		c := contribution{sig: s, decayed: d}
		if amplified[s.ID] {
			c.decayed *= a.ruleset.CoTradeMultiplier
			c.amplified = true
		}
		total += c.decayed
		contribs = append(contribs, c)
		if s.CreatedAt.Before(windowStart) {
			windowStart = s.CreatedAt
		}
	}

	recommendation := models.RecommendationWatch
	switch {
	case total >= a.longThreshold:
		recommendation = models.RecommendationLong
	case total <= -a.longThreshold:
		recommendation = models.RecommendationShort
	}
	confidence := math.Min(1, math.Abs(total)/a.confidenceDivisor)
	reasons := a.topReasons(contribs)

	next := &models.Suggestion{
		EntityID:       entityID,
		Recommendation: recommendation,
		AggregateScore: total,
		Confidence:     confidence,
		Rationale:      strings.Join(reasons, " | "),
		WindowStart:    windowStart,
		WindowEnd:      asOf,
	}

	if a.clf != nil {
		entity, err := a.repo.GetEntityByID(ctx, entityID)
		if err == nil && entity != nil {
			verdict, cerr := a.clf.Classify(ctx, entityID, entity.Symbol, total, reasons)
			switch {
			case cerr != nil:
				a.logger.Warn("classifier unavailable, keeping local verdict",
					zap.String("entity_id", entityID), zap.Error(cerr))
			case verdict != nil:
				next.Recommendation = verdict.Recommendation
				next.Confidence = verdict.Confidence
				next.Rationale = verdict.Rationale
				next.ExternallySourced = true
			}
		}
	}

	prev, err := a.repo.LatestSuggestionForEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: latest suggestion: %w", entityID, err)
	}

	if err := a.repo.InsertSuggestion(ctx, next); err != nil {
		return nil, fmt.Errorf("aggregate %s: insert suggestion: %w", entityID, err)
	}

	decayedByID := make(map[uint64]float64, len(contribs))
	for _, c := range contribs {
		decayedByID[c.sig.ID] = c.decayed
	}
	if err := a.repo.UpdateSignalDecayedScores(ctx, decayedByID); err != nil {
		a.logger.Warn("persisting decayed scores failed", zap.String("entity_id", entityID), zap.Error(err))
	}

	if a.notifier != nil && a.material(prev, next) {
		a.notifier.SuggestionChanged(ctx, prev, next)
	}
	return next, nil
}

// RunAll aggregates every entity that has at least one signal.
func (a *Aggregator) RunAll(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := a.repo.ListEntityIDsWithSignals(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("aggregate all: %w", err)
	}
	var generated int
	for _, id := range ids {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		if _, err := a.Aggregate(ctx, id, asOf); err != nil {
			a.logger.Error("aggregation failed", zap.String("entity_id", id), zap.Error(err))
			continue
		}
		generated++
	}
	return generated, nil
}

// coOccurring finds trade signals whose events place two or more distinct
// actors on the same side within the co-trade window. Each qualifying
// signal is amplified exactly once regardless of how many partners it has.
func (a *Aggregator) coOccurring(signals []models.Signal, events map[string]models.Event) map[uint64]bool {
	type tradeRef struct {
		sigID uint64
		actor string
		at    time.Time
	}
	byDirection := map[int][]tradeRef{}
	for _, s := range signals {
		ev, ok := events[s.EventID]
		if !ok || ev.ActorRef == nil {
			continue
		}
		switch ev.Action {
		case canonical.ActionBuy, canonical.ActionSell, canonical.ActionExercise:
		default:
			continue
		}
		dir := 1
		if s.BaseScore < 0 {
			dir = -1
		}
		byDirection[dir] = append(byDirection[dir], tradeRef{sigID: s.ID, actor: *ev.ActorRef, at: ev.OccurredAt})
	}

	out := map[uint64]bool{}
	for _, refs := range byDirection {
		for i := range refs {
			for j := range refs {
				if i == j || refs[i].actor == refs[j].actor {
					continue
				}
				gap := refs[i].at.Sub(refs[j].at)
				if gap < 0 {
					gap = -gap
				}
				if gap <= a.ruleset.CoTradeWindow {
					out[refs[i].sigID] = true
					out[refs[j].sigID] = true
				}
			}
		}
	}
	return out
}

// topReasons lists the N largest contributions by absolute decayed value.
// Ties break on signal id so the rationale is stable across runs.
func (a *Aggregator) topReasons(contribs []contribution) []string {
	sorted := make([]contribution, len(contribs))
	copy(sorted, contribs)
	sort.Slice(sorted, func(i, j int) bool {
		ai, aj := math.Abs(sorted[i].decayed), math.Abs(sorted[j].decayed)
		if ai != aj {
			return ai > aj
		}
		return sorted[i].sig.ID < sorted[j].sig.ID
	})
	n := a.rationaleTopN
	if n > len(sorted) {
		n = len(sorted)
	}
	reasons := make([]string, 0, n)
	for _, c := range sorted[:n] {
		reason := fmt.Sprintf("%s (%+.2f)", c.sig.Reasoning, c.decayed)
		if c.amplified {
			reason += fmt.Sprintf(" [co-trade x%.1f]", a.ruleset.CoTradeMultiplier)
		}
		reasons = append(reasons, reason)
	}
	return reasons
}

func (a *Aggregator) material(prev, next *models.Suggestion) bool {
	if prev == nil {
		return next.Recommendation != models.RecommendationWatch
	}
	if prev.Recommendation != next.Recommendation {
		return true
	}
	return math.Abs(prev.Confidence-next.Confidence) >= a.alertStep
}
