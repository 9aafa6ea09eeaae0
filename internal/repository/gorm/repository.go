package gormrepository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

type store struct {
	db *gorm.DB
}

func New(db *gorm.DB) repository.Repository {
	return &store{db: db}
}

// ---- events ----

func (s *store) InsertEvent(ctx context.Context, item *models.Event) (bool, error) {
	if item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *store) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var item models.Event
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) ListEventsByEntity(ctx context.Context, entityID string, until time.Time) ([]models.Event, error) {
	var items []models.Event
	err := s.db.WithContext(ctx).
		Where("entity_ref = ? AND ingested_at <= ?", entityID, until).
		Order("occurred_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (s *store) ListEventsByIDs(ctx context.Context, ids []string) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Event
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// ---- actors ----

func (s *store) CreateActor(ctx context.Context, item *models.Actor) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *store) GetActorByID(ctx context.Context, id string) (*models.Actor, error) {
	var item models.Actor
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) ListActors(ctx context.Context) ([]models.Actor, error) {
	var items []models.Actor
	err := s.db.WithContext(ctx).Where("redirected_to IS NULL").Find(&items).Error
	return items, err
}

func (s *store) UpdateActorAliases(ctx context.Context, id string, aliases []string) error {
	raw, err := aliasJSON(aliases)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Actor{}).
		Where("id = ?", id).
		Update("aliases", raw).Error
}

func (s *store) RedirectActor(ctx context.Context, dupID, survivorID string) error {
	return s.db.WithContext(ctx).Model(&models.Actor{}).
		Where("id = ?", dupID).
		Update("redirected_to", survivorID).Error
}

func (s *store) RepointEventActors(ctx context.Context, fromID, toID string) error {
	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("actor_ref = ?", fromID).
		Update("actor_ref", toID).Error
}

// ---- entities ----

func (s *store) CreateEntity(ctx context.Context, item *models.Entity) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *store) GetEntityByID(ctx context.Context, id string) (*models.Entity, error) {
	var item models.Entity
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) GetEntityBySymbol(ctx context.Context, symbol string) (*models.Entity, error) {
	var item models.Entity
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND redirected_to IS NULL", symbol).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) ListEntities(ctx context.Context) ([]models.Entity, error) {
	var items []models.Entity
	err := s.db.WithContext(ctx).Where("redirected_to IS NULL").Find(&items).Error
	return items, err
}

func (s *store) ListEntityIDsWithSignals(ctx context.Context, until time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Signal{}).
		Where("created_at <= ?", until).
		Distinct("entity_id").
		Pluck("entity_id", &ids).Error
	return ids, err
}

func (s *store) UpdateEntityAliases(ctx context.Context, id string, aliases []string) error {
	raw, err := aliasJSON(aliases)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Entity{}).
		Where("id = ?", id).
		Update("aliases", raw).Error
}

func (s *store) RedirectEntity(ctx context.Context, dupID, survivorID string) error {
	return s.db.WithContext(ctx).Model(&models.Entity{}).
		Where("id = ?", dupID).
		Update("redirected_to", survivorID).Error
}

func (s *store) RepointEventEntities(ctx context.Context, fromID, toID string) error {
	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("entity_ref = ?", fromID).
		Update("entity_ref", toID).Error
}

func (s *store) RepointSignalEntities(ctx context.Context, fromID, toID string) error {
	return s.db.WithContext(ctx).Model(&models.Signal{}).
		Where("entity_id = ?", fromID).
		Update("entity_id", toID).Error
}

// ---- signals ----

func (s *store) InsertSignal(ctx context.Context, item *models.Signal) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	q := s.db.WithContext(ctx).Model(&models.Signal{})
	if params.EntityID != "" {
		q = q.Where("entity_id = ?", params.EntityID)
	}
	if params.Until != nil {
		q = q.Where("created_at <= ?", *params.Until)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}
	var items []models.Signal
	err := q.Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (s *store) UpdateSignalDecayedScores(ctx context.Context, decayed map[uint64]float64) error {
	if len(decayed) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, score := range decayed {
			if err := tx.Model(&models.Signal{}).
				Where("id = ?", id).
				Update("decay_applied_score", score).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- suggestions ----

func (s *store) InsertSuggestion(ctx context.Context, item *models.Suggestion) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *store) GetSuggestionByID(ctx context.Context, id uint64) (*models.Suggestion, error) {
	var item models.Suggestion
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) LatestSuggestionForEntity(ctx context.Context, entityID string) (*models.Suggestion, error) {
	var item models.Suggestion
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at DESC, id DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store) ListSuggestions(ctx context.Context, params repository.ListSuggestionsParams) ([]models.Suggestion, error) {
	q := s.db.WithContext(ctx).Model(&models.Suggestion{})
	if params.EntityID != "" {
		q = q.Where("entity_id = ?", params.EntityID)
	}
	if params.Recommendation != "" {
		q = q.Where("recommendation = ?", params.Recommendation)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}
	var items []models.Suggestion
	err := q.Order("created_at DESC, id DESC").Find(&items).Error
	return items, err
}

// ---- performance ----

func (s *store) UpsertPerformanceRecord(ctx context.Context, item *models.PerformanceRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "suggestion_id"}, {Name: "checked_on"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_at_check", "return_percent", "outcome", "checked_at",
		}),
	}).Create(item).Error
}

func (s *store) ListPerformanceRecords(ctx context.Context, suggestionID uint64) ([]models.PerformanceRecord, error) {
	var items []models.PerformanceRecord
	q := s.db.WithContext(ctx).Model(&models.PerformanceRecord{})
	if suggestionID > 0 {
		q = q.Where("suggestion_id = ?", suggestionID)
	}
	err := q.Order("checked_at ASC").Find(&items).Error
	return items, err
}

// ---- prices ----

func (s *store) UpsertPriceBars(ctx context.Context, items []models.PriceBar) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close"}),
	}).Create(&items).Error
}

func (s *store) ListPriceBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	var items []models.PriceBar
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND day >= ? AND day <= ?",
			symbol, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02")).
		Order("day ASC").
		Find(&items).Error
	return items, err
}

// ---- source descriptors ----

func (s *store) UpsertSourceDescriptor(ctx context.Context, item *models.SourceDescriptor) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "endpoint", "auth_token_env", "rate_limit", "rate_period", "enabled", "config",
		}),
	}).Create(item).Error
}

func (s *store) ListSourceDescriptors(ctx context.Context, enabledOnly bool) ([]models.SourceDescriptor, error) {
	q := s.db.WithContext(ctx).Model(&models.SourceDescriptor{})
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var items []models.SourceDescriptor
	err := q.Order("name ASC").Find(&items).Error
	return items, err
}

func (s *store) UpdateSourceHealth(ctx context.Context, name string, status string, lastErr *string, polledAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.SourceDescriptor{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"health_status": status,
			"last_error":    lastErr,
			"last_poll_at":  polledAt,
		}).Error
}

// ---- ingest failures ----

func (s *store) InsertIngestFailure(ctx context.Context, item *models.IngestFailure) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *store) ListIngestFailures(ctx context.Context, params repository.ListFailuresParams) ([]models.IngestFailure, error) {
	q := s.db.WithContext(ctx).Model(&models.IngestFailure{})
	if params.Source != "" {
		q = q.Where("source = ?", params.Source)
	}
	if params.Stage != "" {
		q = q.Where("stage = ?", params.Stage)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q = q.Offset(params.Offset)
	}
	var items []models.IngestFailure
	err := q.Order("created_at DESC, id DESC").Find(&items).Error
	return items, err
}

func aliasJSON(aliases []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(aliases)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
