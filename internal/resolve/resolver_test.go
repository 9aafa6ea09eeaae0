package resolve

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"grifttracker/internal/config"
	"grifttracker/internal/models"
	memoryrepo "grifttracker/internal/repository/memory"
)

func newTestResolver(t *testing.T) (*Resolver, *memoryrepo.Repo) {
	t.Helper()
	repo := memoryrepo.New()
	r := New(repo, config.ResolverConfig{FuzzyThreshold: 0.85, AmbiguityFloor: 0.60}, zap.NewNop())
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r, repo
}

func TestResolveEntity_SuffixAndSymbolVariantsCollapse(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := r.ResolveEntity(ctx, "Apple Inc.", "AAPL", models.AssetTypeStock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	bySuffix, err := r.ResolveEntity(ctx, "Apple", "", models.AssetTypeStock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	bySymbol, err := r.ResolveEntity(ctx, "", "AAPL", models.AssetTypeStock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if bySuffix != first || bySymbol != first {
		t.Fatalf("ids diverge: %s / %s / %s", first, bySuffix, bySymbol)
	}
}

func TestResolveEntity_FuzzyTypo(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := r.ResolveEntity(ctx, "Microsoft Corporation", "MSFT", models.AssetTypeStock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	typo, err := r.ResolveEntity(ctx, "Microsofft", "", models.AssetTypeStock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if typo != first {
		t.Fatalf("typo created new entity: %s vs %s", typo, first)
	}
}

func TestResolveEntity_DistinctNamesStayDistinct(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	apple, _ := r.ResolveEntity(ctx, "Apple Inc.", "AAPL", models.AssetTypeStock)
	tesla, _ := r.ResolveEntity(ctx, "Tesla Inc", "TSLA", models.AssetTypeStock)
	if apple == tesla {
		t.Fatal("unrelated companies merged")
	}
}

func TestResolveActor_ProvisionalOnAmbiguity(t *testing.T) {
	r, repo := newTestResolver(t)
	ctx := context.Background()

	if _, err := r.ResolveActor(ctx, "Jane Margaret Doe", "member"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Close enough to be suspicious, not close enough to match.
	id, err := r.ResolveActor(ctx, "Jane Margaret Roe III", "member")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	actor, err := repo.GetActorByID(ctx, id)
	if err != nil || actor == nil {
		t.Fatalf("actor not stored: %v", err)
	}
	if !actor.Provisional {
		t.Fatal("ambiguous near-match should be provisional")
	}
}

func TestResolveActor_DeterministicIDs(t *testing.T) {
	ra, _ := newTestResolver(t)
	rb, _ := newTestResolver(t)
	ctx := context.Background()

	idA, _ := ra.ResolveActor(ctx, "Jane Doe", "member")
	idB, _ := rb.ResolveActor(ctx, "Jane Doe", "member")
	if idA != idB {
		t.Fatalf("actor ids not deterministic: %s vs %s", idA, idB)
	}
}

func TestMergeEntities_RepointsAndRedirects(t *testing.T) {
	r, repo := newTestResolver(t)
	ctx := context.Background()

	survivor, _ := r.ResolveEntity(ctx, "Alphabet Inc", "GOOGL", models.AssetTypeStock)
	dup, _ := r.ResolveEntity(ctx, "Google", "GOOG", models.AssetTypeStock)
	if survivor == dup {
		t.Fatal("setup: expected two entities")
	}

	entityRef := dup
	ev := &models.Event{
		ID:          "ev-merge",
		Source:      "test",
		EntityRef:   &entityRef,
		Action:      "buy",
		RawText:     "x",
		ContentHash: "merge-hash",
	}
	if _, err := repo.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("insert event: %v", err)
	}

	if err := r.MergeEntities(ctx, survivor, dup); err != nil {
		t.Fatalf("merge: %v", err)
	}

	stored, _ := repo.GetEventByID(ctx, "ev-merge")
	if stored.EntityRef == nil || *stored.EntityRef != survivor {
		t.Fatalf("event not repointed: %v", stored.EntityRef)
	}
	dupEntity, _ := repo.GetEntityByID(ctx, dup)
	if dupEntity.RedirectedTo == nil || *dupEntity.RedirectedTo != survivor {
		t.Fatal("duplicate not marked redirected")
	}

	// Aliases of the duplicate now resolve to the survivor.
	resolved, _ := r.ResolveEntity(ctx, "Google", "", models.AssetTypeStock)
	if resolved != survivor {
		t.Fatalf("alias still resolves to duplicate: %s", resolved)
	}
}

func TestMergeEntities_SelfMergeRejected(t *testing.T) {
	r, _ := newTestResolver(t)
	if err := r.MergeEntities(context.Background(), "same", "same"); err == nil {
		t.Fatal("self merge should error")
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("apple", "apple"); got != 1 {
		t.Fatalf("identical: got=%v", got)
	}
	if got := Similarity("apple", "appel"); got < 0.5 {
		t.Fatalf("transposition too low: %v", got)
	}
	if got := Similarity("abc", ""); got != 0 {
		t.Fatalf("disjoint: got=%v", got)
	}
}
