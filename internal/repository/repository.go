package repository

import (
	"context"
	"time"

	"grifttracker/internal/models"
)

type ListSignalsParams struct {
	EntityID string
	Until    *time.Time
	Limit    int
	Offset   int
}

type ListSuggestionsParams struct {
	EntityID       string
	Recommendation string
	Limit          int
	Offset         int
}

type ListFailuresParams struct {
	Source string
	Stage  string
	Limit  int
	Offset int
}

// Repository is the storage contract the pipeline and engines depend on.
// All writes are upsert-by-id at the storage boundary so re-runs are safe.
type Repository interface {
	// Events. InsertEvent is a no-op (inserted=false) when content_hash
	// already exists.
	InsertEvent(ctx context.Context, item *models.Event) (inserted bool, err error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEventsByEntity(ctx context.Context, entityID string, until time.Time) ([]models.Event, error)
	ListEventsByIDs(ctx context.Context, ids []string) ([]models.Event, error)

	// Actors and entities: identity tables for the resolver.
	CreateActor(ctx context.Context, item *models.Actor) error
	GetActorByID(ctx context.Context, id string) (*models.Actor, error)
	ListActors(ctx context.Context) ([]models.Actor, error)
	UpdateActorAliases(ctx context.Context, id string, aliases []string) error
	RedirectActor(ctx context.Context, dupID, survivorID string) error
	RepointEventActors(ctx context.Context, fromID, toID string) error

	CreateEntity(ctx context.Context, item *models.Entity) error
	GetEntityByID(ctx context.Context, id string) (*models.Entity, error)
	GetEntityBySymbol(ctx context.Context, symbol string) (*models.Entity, error)
	ListEntities(ctx context.Context) ([]models.Entity, error)
	ListEntityIDsWithSignals(ctx context.Context, until time.Time) ([]string, error)
	UpdateEntityAliases(ctx context.Context, id string, aliases []string) error
	RedirectEntity(ctx context.Context, dupID, survivorID string) error
	RepointEventEntities(ctx context.Context, fromID, toID string) error
	RepointSignalEntities(ctx context.Context, fromID, toID string) error

	// Signals.
	InsertSignal(ctx context.Context, item *models.Signal) error
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.Signal, error)
	UpdateSignalDecayedScores(ctx context.Context, decayed map[uint64]float64) error

	// Suggestions: append-only history, one row per generation run.
	InsertSuggestion(ctx context.Context, item *models.Suggestion) error
	GetSuggestionByID(ctx context.Context, id uint64) (*models.Suggestion, error)
	LatestSuggestionForEntity(ctx context.Context, entityID string) (*models.Suggestion, error)
	ListSuggestions(ctx context.Context, params ListSuggestionsParams) ([]models.Suggestion, error)

	// Performance.
	UpsertPerformanceRecord(ctx context.Context, item *models.PerformanceRecord) error
	ListPerformanceRecords(ctx context.Context, suggestionID uint64) ([]models.PerformanceRecord, error)

	// Prices.
	UpsertPriceBars(ctx context.Context, items []models.PriceBar) error
	ListPriceBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)

	// Source descriptors.
	UpsertSourceDescriptor(ctx context.Context, item *models.SourceDescriptor) error
	ListSourceDescriptors(ctx context.Context, enabledOnly bool) ([]models.SourceDescriptor, error)
	UpdateSourceHealth(ctx context.Context, name string, status string, lastErr *string, polledAt time.Time) error

	// Ingest failures (replay log).
	InsertIngestFailure(ctx context.Context, item *models.IngestFailure) error
	ListIngestFailures(ctx context.Context, params ListFailuresParams) ([]models.IngestFailure, error)
}
