// Package memoryrepo is an in-memory repository.Repository used by tests
// and local development. It mirrors the storage-boundary semantics of the
// gorm implementation: insert-once on content hash, upsert keys, and
// nil-on-not-found reads.
package memoryrepo

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"gorm.io/datatypes"

	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

type Repo struct {
	mu sync.Mutex

	events       map[string]models.Event
	eventsByHash map[string]string
	actors       map[string]models.Actor
	entities     map[string]models.Entity
	signals      []models.Signal
	suggestions  []models.Suggestion
	perfRecords  map[string]models.PerformanceRecord
	priceBars    map[string]models.PriceBar
	sources      map[string]models.SourceDescriptor
	failures     []models.IngestFailure

	nextSignalID     uint64
	nextSuggestionID uint64
	nextPerfID       uint64
}

var _ repository.Repository = (*Repo)(nil)

func New() *Repo {
	return &Repo{
		events:       map[string]models.Event{},
		eventsByHash: map[string]string{},
		actors:       map[string]models.Actor{},
		entities:     map[string]models.Entity{},
		perfRecords:  map[string]models.PerformanceRecord{},
		priceBars:    map[string]models.PriceBar{},
		sources:      map[string]models.SourceDescriptor{},
	}
}

func (r *Repo) InsertEvent(_ context.Context, item *models.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.eventsByHash[item.ContentHash]; ok {
		return false, nil
	}
	if item.IngestedAt.IsZero() {
		item.IngestedAt = time.Now().UTC()
	}
	r.events[item.ID] = *item
	r.eventsByHash[item.ContentHash] = item.ID
	return true, nil
}

func (r *Repo) GetEventByID(_ context.Context, id string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.events[id]; ok {
		copied := ev
		return &copied, nil
	}
	return nil, nil
}

func (r *Repo) ListEventsByEntity(_ context.Context, entityID string, until time.Time) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.EntityRef != nil && *ev.EntityRef == entityID && !ev.OccurredAt.After(until) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (r *Repo) ListEventsByIDs(_ context.Context, ids []string) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, id := range ids {
		if ev, ok := r.events[id]; ok {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (r *Repo) CreateActor(_ context.Context, item *models.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[item.ID] = *item
	return nil
}

func (r *Repo) GetActorByID(_ context.Context, id string) (*models.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[id]; ok {
		copied := a
		return &copied, nil
	}
	return nil, nil
}

func (r *Repo) ListActors(_ context.Context) ([]models.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Actor, 0, len(r.actors))
	for _, a := range r.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) UpdateActorAliases(_ context.Context, id string, aliases []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[id]
	if !ok {
		return nil
	}
	a.Aliases = mustJSON(aliases)
	r.actors[id] = a
	return nil
}

func (r *Repo) RedirectActor(_ context.Context, dupID, survivorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[dupID]
	if !ok {
		return nil
	}
	a.RedirectedTo = &survivorID
	r.actors[dupID] = a
	return nil
}

func (r *Repo) RepointEventActors(_ context.Context, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ev := range r.events {
		if ev.ActorRef != nil && *ev.ActorRef == fromID {
			to := toID
			ev.ActorRef = &to
			r.events[id] = ev
		}
	}
	return nil
}

func (r *Repo) CreateEntity(_ context.Context, item *models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[item.ID] = *item
	return nil
}

func (r *Repo) GetEntityByID(_ context.Context, id string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entities[id]; ok {
		copied := e
		return &copied, nil
	}
	return nil, nil
}

func (r *Repo) GetEntityBySymbol(_ context.Context, symbol string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entities {
		if e.Symbol == symbol && e.RedirectedTo == nil {
			copied := e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *Repo) ListEntities(_ context.Context) ([]models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) ListEntityIDsWithSignals(_ context.Context, until time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, s := range r.signals {
		if s.CreatedAt.After(until) || seen[s.EntityID] {
			continue
		}
		seen[s.EntityID] = true
		out = append(out, s.EntityID)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repo) UpdateEntityAliases(_ context.Context, id string, aliases []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil
	}
	e.Aliases = mustJSON(aliases)
	r.entities[id] = e
	return nil
}

func (r *Repo) RedirectEntity(_ context.Context, dupID, survivorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[dupID]
	if !ok {
		return nil
	}
	e.RedirectedTo = &survivorID
	r.entities[dupID] = e
	return nil
}

func (r *Repo) RepointEventEntities(_ context.Context, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ev := range r.events {
		if ev.EntityRef != nil && *ev.EntityRef == fromID {
			to := toID
			ev.EntityRef = &to
			r.events[id] = ev
		}
	}
	return nil
}

func (r *Repo) RepointSignalEntities(_ context.Context, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.signals {
		if r.signals[i].EntityID == fromID {
			r.signals[i].EntityID = toID
		}
	}
	return nil
}

func (r *Repo) InsertSignal(_ context.Context, item *models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSignalID++
	item.ID = r.nextSignalID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.signals = append(r.signals, *item)
	return nil
}

func (r *Repo) ListSignals(_ context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Signal
	for _, s := range r.signals {
		if params.EntityID != "" && s.EntityID != params.EntityID {
			continue
		}
		if params.Until != nil && s.CreatedAt.After(*params.Until) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *Repo) UpdateSignalDecayedScores(_ context.Context, decayed map[uint64]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.signals {
		if v, ok := decayed[r.signals[i].ID]; ok {
			r.signals[i].DecayAppliedScore = v
		}
	}
	return nil
}

func (r *Repo) InsertSuggestion(_ context.Context, item *models.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSuggestionID++
	item.ID = r.nextSuggestionID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.suggestions = append(r.suggestions, *item)
	return nil
}

func (r *Repo) GetSuggestionByID(_ context.Context, id uint64) (*models.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.suggestions {
		if s.ID == id {
			copied := s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *Repo) LatestSuggestionForEntity(_ context.Context, entityID string) (*models.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Suggestion
	for i := range r.suggestions {
		s := r.suggestions[i]
		if s.EntityID != entityID {
			continue
		}
		if latest == nil || s.ID > latest.ID {
			copied := s
			latest = &copied
		}
	}
	return latest, nil
}

func (r *Repo) ListSuggestions(_ context.Context, params repository.ListSuggestionsParams) ([]models.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Suggestion
	for _, s := range r.suggestions {
		if params.EntityID != "" && s.EntityID != params.EntityID {
			continue
		}
		if params.Recommendation != "" && s.Recommendation != params.Recommendation {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *Repo) UpsertPerformanceRecord(_ context.Context, item *models.PerformanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := perfKey(item.SuggestionID, item.CheckedOn)
	if existing, ok := r.perfRecords[key]; ok {
		item.ID = existing.ID
	} else {
		r.nextPerfID++
		item.ID = r.nextPerfID
	}
	r.perfRecords[key] = *item
	return nil
}

func (r *Repo) ListPerformanceRecords(_ context.Context, suggestionID uint64) ([]models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PerformanceRecord
	for _, rec := range r.perfRecords {
		if rec.SuggestionID == suggestionID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedOn < out[j].CheckedOn })
	return out, nil
}

func (r *Repo) UpsertPriceBars(_ context.Context, items []models.PriceBar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bar := range items {
		r.priceBars[bar.Symbol+"|"+bar.Day] = bar
	}
	return nil
}

func (r *Repo) ListPriceBars(_ context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fromDay := from.UTC().Format("2006-01-02")
	toDay := to.UTC().Format("2006-01-02")
	var out []models.PriceBar
	for _, bar := range r.priceBars {
		if bar.Symbol == symbol && bar.Day >= fromDay && bar.Day <= toDay {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *Repo) UpsertSourceDescriptor(_ context.Context, item *models.SourceDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sources[item.Name]; ok {
		item.ID = existing.ID
		item.LastPollAt = existing.LastPollAt
		item.LastError = existing.LastError
		item.HealthStatus = existing.HealthStatus
	} else {
		item.ID = uint64(len(r.sources) + 1)
	}
	r.sources[item.Name] = *item
	return nil
}

func (r *Repo) ListSourceDescriptors(_ context.Context, enabledOnly bool) ([]models.SourceDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SourceDescriptor
	for _, src := range r.sources {
		if enabledOnly && !src.Enabled {
			continue
		}
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repo) UpdateSourceHealth(_ context.Context, name, status string, lastErr *string, polledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[name]
	if !ok {
		return nil
	}
	src.HealthStatus = status
	src.LastError = lastErr
	src.LastPollAt = &polledAt
	r.sources[name] = src
	return nil
}

func (r *Repo) InsertIngestFailure(_ context.Context, item *models.IngestFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uint64(len(r.failures) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.failures = append(r.failures, *item)
	return nil
}

func (r *Repo) ListIngestFailures(_ context.Context, params repository.ListFailuresParams) ([]models.IngestFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.IngestFailure
	for _, f := range r.failures {
		if params.Source != "" && f.Source != params.Source {
			continue
		}
		if params.Stage != "" && f.Stage != params.Stage {
			continue
		}
		out = append(out, f)
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func sortEvents(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
}

func perfKey(suggestionID uint64, day string) string {
	return day + "|" + strconv.FormatUint(suggestionID, 10)
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}
