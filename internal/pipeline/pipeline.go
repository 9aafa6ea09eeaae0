package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"grifttracker/internal/adapter"
	"grifttracker/internal/canonical"
	"grifttracker/internal/config"
	"grifttracker/internal/dedup"
	"grifttracker/internal/fetch"
	"grifttracker/internal/models"
	"grifttracker/internal/repository"
	"grifttracker/internal/resolve"
	"grifttracker/internal/signal"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// RunResult is the tally of one ingestion sweep.
type RunResult struct {
	Sources    int `json:"sources"`
	Fetched    int `json:"fetched"`
	Records    int `json:"records"`
	Events     int `json:"events"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Signals    int `json:"signals"`
	PriceBars  int `json:"price_bars"`
	Failures   int `json:"failures"`
}

type tally struct {
	mu  sync.Mutex
	res RunResult
}

func (t *tally) bump(fn func(*RunResult)) {
	t.mu.Lock()
	fn(&t.res)
	t.mu.Unlock()
}

// Pipeline drives one ingestion sweep: fetch every enabled source, parse
// with the adapter for its kind, canonicalize, dedup at the content-hash
// gate, store, and score fresh events into signals. Sources whose kind
// carries authoritative structure run before free-text kinds so that when
// two feeds describe the same disclosure, the structured copy wins the
// dedup race.
type Pipeline struct {
	repo     repository.Repository
	fetcher  *fetch.Fetcher
	canon    *Canonicalizer
	dedup    dedup.Store
	resolver *resolve.Resolver
	ruleset  signal.Ruleset
	logger   *zap.Logger

	concurrency int
}

func New(repo repository.Repository, fetcher *fetch.Fetcher, canon *Canonicalizer, store dedup.Store, resolver *resolve.Resolver, rs signal.Ruleset, cfg config.SourcesConfig, logger *zap.Logger) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		repo:        repo,
		fetcher:     fetcher,
		canon:       canon,
		dedup:       store,
		resolver:    resolver,
		ruleset:     rs,
		logger:      logger,
		concurrency: concurrency,
	}
}

// kindOrder sequences source kinds by authority. Lower runs earlier.
var kindOrder = map[adapter.Kind]int{
	adapter.KindStructuredFiling: 0,
	adapter.KindTabularFiling:    1,
	adapter.KindLegislative:      2,
	adapter.KindPrice:            2,
	adapter.KindNews:             3,
	adapter.KindSocial:           3,
}

// Run executes one full sweep over the enabled sources.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	sources, err := p.repo.ListSourceDescriptors(ctx, true)
	if err != nil {
		return RunResult{}, err
	}
	t := &tally{}
	t.res.Sources = len(sources)

	sort.SliceStable(sources, func(i, j int) bool {
		return kindOrder[adapter.Kind(sources[i].Kind)] < kindOrder[adapter.Kind(sources[j].Kind)]
	})

	// Same-rank sources run concurrently; ranks run in order.
	for i := 0; i < len(sources); {
		j := i
		rank := kindOrder[adapter.Kind(sources[i].Kind)]
		for j < len(sources) && kindOrder[adapter.Kind(sources[j].Kind)] == rank {
			j++
		}
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for _, src := range sources[i:j] {
			g.Go(func() error {
				p.processSource(ctx, src, t)
				return nil
			})
		}
		_ = g.Wait()
		i = j
	}

	p.logger.Info("ingestion sweep finished",
		zap.Int("sources", t.res.Sources),
		zap.Int("events", t.res.Events),
		zap.Int("duplicates", t.res.Duplicates),
		zap.Int("signals", t.res.Signals),
		zap.Int("failures", t.res.Failures))
	return t.res, nil
}

// IngestPayload pushes one raw document through the same parse, dedup and
// scoring path the poller uses. Serves the push-style ingest endpoint.
func (p *Pipeline) IngestPayload(ctx context.Context, source string, kind adapter.Kind, payload []byte) (RunResult, error) {
	t := &tally{}
	ad, err := adapter.ForKind(kind, p.logger)
	if err != nil {
		return t.res, err
	}
	records, err := ad.Parse(payload)
	if err != nil {
		p.recordFailure(ctx, t, source, "pushed document", "parse", err.Error(), payload)
		return t.res, err
	}
	t.res.Records = len(records)

	src := models.SourceDescriptor{Name: source, Kind: string(kind)}
	if kind == adapter.KindPrice {
		p.storePriceBars(ctx, t, src, records)
		return t.res, nil
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return t.res, err
		}
		p.processRecord(ctx, t, src, rec)
	}
	return t.res, nil
}

func (p *Pipeline) processSource(ctx context.Context, src models.SourceDescriptor, t *tally) {
	now := time.Now().UTC()

	payload, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		p.recordFailure(ctx, t, src.Name, src.Endpoint, "fetch", err.Error(), nil)
		p.setHealth(ctx, src.Name, healthDegraded, err, now)
		return
	}
	t.bump(func(r *RunResult) { r.Fetched++ })

	ad, err := adapter.ForKind(adapter.Kind(src.Kind), p.logger)
	if err != nil {
		p.recordFailure(ctx, t, src.Name, src.Endpoint, "parse", err.Error(), nil)
		p.setHealth(ctx, src.Name, healthDegraded, err, now)
		return
	}
	records, err := ad.Parse(payload)
	if err != nil {
		p.recordFailure(ctx, t, src.Name, src.Endpoint, "parse", err.Error(), payload)
		p.setHealth(ctx, src.Name, healthDegraded, err, now)
		return
	}
	t.bump(func(r *RunResult) { r.Records += len(records) })

	if adapter.Kind(src.Kind) == adapter.KindPrice {
		p.storePriceBars(ctx, t, src, records)
		p.setHealth(ctx, src.Name, healthOK, nil, now)
		return
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		p.processRecord(ctx, t, src, rec)
	}
	p.setHealth(ctx, src.Name, healthOK, nil, now)
}

func (p *Pipeline) processRecord(ctx context.Context, t *tally, src models.SourceDescriptor, rec adapter.RawRecord) {
	events, skip, err := p.canon.Canonicalize(ctx, src.Name, adapter.Kind(src.Kind), rec)
	if err != nil {
		p.recordFailure(ctx, t, src.Name, rec.Get("item_id", "filing_id", "bill_id"), "canonicalize", err.Error(), recJSON(rec))
		return
	}
	if skip != "" {
		t.bump(func(r *RunResult) { r.Skipped++ })
		return
	}

	for _, ev := range events {
		admitted, err := p.dedup.Admit(ctx, ev.ContentHash)
		if err != nil {
			p.logger.Warn("dedup store unavailable, relying on storage constraint",
				zap.String("source", src.Name), zap.Error(err))
			admitted = true
		}
		if !admitted {
			t.bump(func(r *RunResult) { r.Duplicates++ })
			continue
		}
		inserted, err := p.repo.InsertEvent(ctx, ev)
		if err != nil {
			p.recordFailure(ctx, t, src.Name, ev.ID, "store", err.Error(), recJSON(rec))
			continue
		}
		if !inserted {
			t.bump(func(r *RunResult) { r.Duplicates++ })
			continue
		}
		t.bump(func(r *RunResult) { r.Events++ })
		p.scoreEvent(ctx, t, src.Name, ev)
	}
}

// scoreEvent turns one stored event into signals for every entity it
// bears on: its direct entity, or a sector / crypto-basket fan-out when
// the event names no instrument directly.
func (p *Pipeline) scoreEvent(ctx context.Context, t *tally, source string, ev *models.Event) {
	targets, err := p.scoringTargets(ctx, ev)
	if err != nil {
		p.recordFailure(ctx, t, source, ev.ID, "score", err.Error(), nil)
		return
	}
	for _, entity := range targets {
		score, reasoning, ok := signal.Score(ev, &entity, p.ruleset)
		if !ok {
			continue
		}
		sig := &models.Signal{
			EventID:           ev.ID,
			EntityID:          entity.ID,
			BaseScore:         score,
			DecayAppliedScore: score,
			RulesetVersion:    p.ruleset.Version,
			Reasoning:         reasoning,
			CreatedAt:         ev.OccurredAt,
		}
		if err := p.repo.InsertSignal(ctx, sig); err != nil {
			p.recordFailure(ctx, t, source, ev.ID, "score", err.Error(), nil)
			continue
		}
		t.bump(func(r *RunResult) { r.Signals++ })
	}
}

func (p *Pipeline) scoringTargets(ctx context.Context, ev *models.Event) ([]models.Entity, error) {
	if ev.EntityRef != nil {
		entity, err := p.repo.GetEntityByID(ctx, *ev.EntityRef)
		if err != nil || entity == nil {
			return nil, err
		}
		return []models.Entity{*entity}, nil
	}

	var meta map[string]string
	if len(ev.Metadata) > 0 {
		_ = json.Unmarshal(ev.Metadata, &meta)
	}

	if sector := meta["sector"]; sector != "" {
		all, err := p.repo.ListEntities(ctx)
		if err != nil {
			return nil, err
		}
		var targets []models.Entity
		for _, e := range all {
			if e.RedirectedTo == nil && e.Sector != nil && strings.EqualFold(*e.Sector, sector) {
				targets = append(targets, e)
			}
		}
		return targets, nil
	}

	if mentionsCrypto(ev.RawText) {
		var targets []models.Entity
		for _, sym := range p.ruleset.CryptoBasket {
			id, err := p.resolver.ResolveEntity(ctx, "", sym, models.AssetTypeCrypto)
			if err != nil {
				return nil, err
			}
			entity, err := p.repo.GetEntityByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if entity != nil {
				targets = append(targets, *entity)
			}
		}
		return targets, nil
	}
	return nil, nil
}

var cryptoTerms = []string{"crypto", "cryptocurrency", "bitcoin", "ethereum", "digital asset", "digital currency"}

func mentionsCrypto(text string) bool {
	low := strings.ToLower(text)
	for _, term := range cryptoTerms {
		if strings.Contains(low, term) {
			return true
		}
	}
	return false
}

func (p *Pipeline) storePriceBars(ctx context.Context, t *tally, src models.SourceDescriptor, records []adapter.RawRecord) {
	bars := make([]models.PriceBar, 0, len(records))
	for _, rec := range records {
		symbol := canonical.NormalizeTicker(rec.Get("symbol"))
		day, ok := canonical.ParseDate(rec.Get("date"))
		if symbol == "" || !ok {
			p.recordFailure(ctx, t, src.Name, rec.Get("symbol"), "parse", "price bar missing symbol or date", recJSON(rec))
			continue
		}
		bar := models.PriceBar{Symbol: symbol, Day: day.UTC().Format("2006-01-02")}
		fields := []struct {
			key string
			dst *decimal.Decimal
		}{
			{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
		}
		valid := true
		for _, f := range fields {
			d, err := decimal.NewFromString(rec.Get(f.key))
			if err != nil {
				p.recordFailure(ctx, t, src.Name, symbol, "parse", "bad price field "+f.key, recJSON(rec))
				valid = false
				break
			}
			*f.dst = d
		}
		if !valid {
			continue
		}
		// Price feeds register the instrument so later filings resolve to it.
		if _, err := p.resolver.ResolveEntity(ctx, "", symbol, models.AssetTypeStock); err != nil {
			p.logger.Warn("price symbol registration failed", zap.String("symbol", symbol), zap.Error(err))
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return
	}
	if err := p.repo.UpsertPriceBars(ctx, bars); err != nil {
		p.recordFailure(ctx, t, src.Name, src.Endpoint, "store", err.Error(), nil)
		return
	}
	t.bump(func(r *RunResult) { r.PriceBars += len(bars) })
}

func (p *Pipeline) recordFailure(ctx context.Context, t *tally, source, identifier, stage, reason string, payload []byte) {
	t.bump(func(r *RunResult) { r.Failures++ })
	failure := &models.IngestFailure{
		Source:     source,
		Identifier: identifier,
		Stage:      stage,
		Reason:     reason,
	}
	if len(payload) > 0 && json.Valid(payload) {
		failure.Payload = datatypes.JSON(payload)
	}
	if err := p.repo.InsertIngestFailure(ctx, failure); err != nil {
		p.logger.Error("recording ingest failure failed",
			zap.String("source", source), zap.String("stage", stage), zap.Error(err))
	}
	p.logger.Warn("record skipped",
		zap.String("source", source),
		zap.String("stage", stage),
		zap.String("identifier", identifier),
		zap.String("reason", reason))
}

func (p *Pipeline) setHealth(ctx context.Context, name, status string, cause error, polledAt time.Time) {
	var lastErr *string
	if cause != nil {
		msg := cause.Error()
		lastErr = &msg
	}
	if err := p.repo.UpdateSourceHealth(ctx, name, status, lastErr, polledAt); err != nil {
		p.logger.Error("updating source health failed", zap.String("source", name), zap.Error(err))
	}
}

func recJSON(rec adapter.RawRecord) []byte {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return raw
}
