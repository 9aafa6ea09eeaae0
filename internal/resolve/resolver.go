package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"grifttracker/internal/config"
	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

	// Corporate suffixes carry no identity information and defeat both the
	// normalized and fuzzy passes ("Apple Inc." vs "Apple").
	corpSuffixes = []string{
		"incorporated", "inc", "corporation", "corp", "company", "co",
		"limited", "ltd", "llc", "plc", "holdings", "group", "sa", "ag", "nv",
	}
)

// Resolver maps free-text mentions of actors and instruments onto stable
// canonical ids. It is an injected service holding the alias maps; nothing
// in the pipeline touches identity state ambiently. Resolution order:
// exact alias, normalized match, fuzzy match above the configured
// threshold, else create. Matches landing between the ambiguity floor and
// the threshold create a provisional record flagged for manual review
// instead of guessing.
type Resolver struct {
	repo   repository.Repository
	logger *zap.Logger

	threshold float64
	floor     float64

	mu            sync.Mutex
	actorByAlias  map[string]string // normalized alias -> actor id
	entityByAlias map[string]string // normalized alias -> entity id
	actorAliases  map[string][]string
	entityAliases map[string][]string
}

func New(repo repository.Repository, cfg config.ResolverConfig, logger *zap.Logger) *Resolver {
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	floor := cfg.AmbiguityFloor
	if floor < 0 || floor >= threshold {
		floor = 0.60
	}
	return &Resolver{
		repo:          repo,
		logger:        logger,
		threshold:     threshold,
		floor:         floor,
		actorByAlias:  map[string]string{},
		entityByAlias: map[string]string{},
		actorAliases:  map[string][]string{},
		entityAliases: map[string][]string{},
	}
}

// Load primes the alias maps from storage. Call once before ingestion.
func (r *Resolver) Load(ctx context.Context) error {
	actors, err := r.repo.ListActors(ctx)
	if err != nil {
		return fmt.Errorf("resolver load actors: %w", err)
	}
	entities, err := r.repo.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("resolver load entities: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actors {
		aliases := decodeAliases(a.Aliases)
		r.actorAliases[a.ID] = aliases
		for _, alias := range aliases {
			r.actorByAlias[normalizeAlias(alias)] = a.ID
		}
	}
	for _, e := range entities {
		aliases := decodeAliases(e.Aliases)
		r.entityAliases[e.ID] = aliases
		for _, alias := range aliases {
			r.entityByAlias[normalizeAlias(alias)] = e.ID
		}
		if e.Symbol != "" {
			r.entityByAlias[normalizeAlias(e.Symbol)] = e.ID
		}
	}
	return nil
}

// ResolveActor resolves a free-text actor mention, creating a new Actor
// when nothing known is close enough. The whole resolve-or-create step is
// atomic with respect to other callers.
func (r *Resolver) ResolveActor(ctx context.Context, mention, role string) (string, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return "", fmt.Errorf("empty actor mention")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	norm := normalizeAlias(mention)
	if id, ok := r.actorByAlias[norm]; ok {
		return id, nil
	}

	id, sim := r.closest(norm, r.actorByAlias)
	if id != "" && sim >= r.threshold {
		r.learnActorAliasLocked(ctx, id, mention)
		return id, nil
	}

	provisional := id != "" && sim >= r.floor
	actor := &models.Actor{
		ID:            deterministicID("actor", norm),
		CanonicalName: mention,
		Role:          role,
		Aliases:       encodeAliases([]string{mention}),
		Provisional:   provisional,
	}
	if err := r.repo.CreateActor(ctx, actor); err != nil {
		return "", fmt.Errorf("create actor %q: %w", mention, err)
	}
	r.actorByAlias[norm] = actor.ID
	r.actorAliases[actor.ID] = []string{mention}
	if provisional && r.logger != nil {
		r.logger.Warn("ambiguous actor mention, provisional record created",
			zap.String("mention", mention),
			zap.String("nearest", id),
			zap.Float64("similarity", sim))
	}
	return actor.ID, nil
}

// ResolveEntity resolves a free-text instrument mention (a ticker, a
// company name, or a "Name (TICK)" asset field) to an entity id.
func (r *Resolver) ResolveEntity(ctx context.Context, mention, symbol, assetType string) (string, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" && symbol == "" {
		return "", fmt.Errorf("empty entity mention")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Symbol is the strongest key when present.
	if symbol != "" {
		if id, ok := r.entityByAlias[normalizeAlias(symbol)]; ok {
			if mention != "" {
				r.learnEntityAliasLocked(ctx, id, mention)
			}
			return id, nil
		}
	}
	norm := normalizeAlias(mention)
	if norm != "" {
		if id, ok := r.entityByAlias[norm]; ok {
			if symbol != "" {
				r.learnEntityAliasLocked(ctx, id, symbol)
			}
			return id, nil
		}
		if id, sim := r.closest(norm, r.entityByAlias); id != "" && sim >= r.threshold {
			r.learnEntityAliasLocked(ctx, id, mention)
			if symbol != "" {
				r.learnEntityAliasLocked(ctx, id, symbol)
			}
			return id, nil
		}
	}

	if assetType == "" {
		assetType = models.AssetTypeStock
	}
	if symbol == "" {
		symbol = fallbackSymbol(mention)
	}
	aliases := []string{}
	if mention != "" {
		aliases = append(aliases, mention)
	}
	if symbol != "" && !strings.EqualFold(symbol, mention) {
		aliases = append(aliases, symbol)
	}
	_, sim := r.closest(norm, r.entityByAlias)
	entity := &models.Entity{
		ID:          deterministicID("entity", normalizeAlias(symbol)+"|"+norm),
		Symbol:      symbol,
		AssetType:   assetType,
		Aliases:     encodeAliases(aliases),
		Provisional: norm != "" && sim >= r.floor,
	}
	if err := r.repo.CreateEntity(ctx, entity); err != nil {
		return "", fmt.Errorf("create entity %q: %w", mention, err)
	}
	for _, alias := range aliases {
		r.entityByAlias[normalizeAlias(alias)] = entity.ID
	}
	r.entityAliases[entity.ID] = aliases
	if entity.Provisional && r.logger != nil {
		r.logger.Warn("ambiguous entity mention, provisional record created",
			zap.String("mention", mention), zap.Float64("similarity", sim))
	}
	return entity.ID, nil
}

// MergeEntities repoints every event and signal from dup onto survivor,
// folds the aliases in, and marks dup redirected. The dup row is kept for
// audit; its id is never reused.
func (r *Resolver) MergeEntities(ctx context.Context, survivorID, dupID string) error {
	if survivorID == dupID {
		return fmt.Errorf("merge: survivor and duplicate are the same id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.RepointEventEntities(ctx, dupID, survivorID); err != nil {
		return err
	}
	if err := r.repo.RepointSignalEntities(ctx, dupID, survivorID); err != nil {
		return err
	}
	if err := r.repo.RedirectEntity(ctx, dupID, survivorID); err != nil {
		return err
	}
	merged := append(r.entityAliases[survivorID], r.entityAliases[dupID]...)
	r.entityAliases[survivorID] = merged
	for _, alias := range r.entityAliases[dupID] {
		r.entityByAlias[normalizeAlias(alias)] = survivorID
	}
	delete(r.entityAliases, dupID)
	if err := r.repo.UpdateEntityAliases(ctx, survivorID, merged); err != nil {
		return err
	}
	if r.logger != nil {
		r.logger.Info("entities merged",
			zap.String("survivor", survivorID), zap.String("redirected", dupID))
	}
	return nil
}

// MergeActors is MergeEntities for the actor table.
func (r *Resolver) MergeActors(ctx context.Context, survivorID, dupID string) error {
	if survivorID == dupID {
		return fmt.Errorf("merge: survivor and duplicate are the same id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.RepointEventActors(ctx, dupID, survivorID); err != nil {
		return err
	}
	if err := r.repo.RedirectActor(ctx, dupID, survivorID); err != nil {
		return err
	}
	merged := append(r.actorAliases[survivorID], r.actorAliases[dupID]...)
	r.actorAliases[survivorID] = merged
	for _, alias := range r.actorAliases[dupID] {
		r.actorByAlias[normalizeAlias(alias)] = survivorID
	}
	delete(r.actorAliases, dupID)
	if err := r.repo.UpdateActorAliases(ctx, survivorID, merged); err != nil {
		return err
	}
	if r.logger != nil {
		r.logger.Info("actors merged",
			zap.String("survivor", survivorID), zap.String("redirected", dupID))
	}
	return nil
}

func (r *Resolver) learnActorAliasLocked(ctx context.Context, id, alias string) {
	norm := normalizeAlias(alias)
	if _, ok := r.actorByAlias[norm]; ok {
		return
	}
	r.actorByAlias[norm] = id
	r.actorAliases[id] = append(r.actorAliases[id], alias)
	if err := r.repo.UpdateActorAliases(ctx, id, r.actorAliases[id]); err != nil && r.logger != nil {
		r.logger.Warn("persist actor alias failed", zap.String("actor", id), zap.Error(err))
	}
}

func (r *Resolver) learnEntityAliasLocked(ctx context.Context, id, alias string) {
	norm := normalizeAlias(alias)
	if _, ok := r.entityByAlias[norm]; ok {
		return
	}
	r.entityByAlias[norm] = id
	r.entityAliases[id] = append(r.entityAliases[id], alias)
	if err := r.repo.UpdateEntityAliases(ctx, id, r.entityAliases[id]); err != nil && r.logger != nil {
		r.logger.Warn("persist entity alias failed", zap.String("entity", id), zap.Error(err))
	}
}

// closest scans known aliases for the best similarity to norm.
func (r *Resolver) closest(norm string, index map[string]string) (string, float64) {
	bestID, bestSim := "", 0.0
	for alias, id := range index {
		sim := Similarity(norm, alias)
		if sim > bestSim {
			bestID, bestSim = id, sim
		}
	}
	return bestID, bestSim
}

// Similarity is 1 − levenshtein/maxlen over normalized strings, in [0,1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func normalizeAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRe.ReplaceAllString(s, " ")
	words := strings.Fields(s)
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isCorpSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isCorpSuffix(word string) bool {
	for _, s := range corpSuffixes {
		if word == s {
			return true
		}
	}
	return false
}

// fallbackSymbol derives a placeholder symbol for entities mentioned with
// no ticker at all, so the symbol column stays queryable.
func fallbackSymbol(mention string) string {
	norm := normalizeAlias(mention)
	norm = strings.ReplaceAll(norm, " ", "-")
	if len(norm) > 20 {
		norm = norm[:20]
	}
	return strings.ToUpper(norm)
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://grifttracker/identity"))

func deterministicID(kind, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(kind+":"+key)).String()
}

func decodeAliases(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func encodeAliases(aliases []string) datatypes.JSON {
	raw, err := json.Marshal(aliases)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}
