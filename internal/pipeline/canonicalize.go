package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"grifttracker/internal/adapter"
	"grifttracker/internal/canonical"
	"grifttracker/internal/models"
	"grifttracker/internal/resolve"
)

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://grifttracker/transaction-event"))

// Canonicalizer turns adapter records into canonical Events: resolved
// actor and entity refs, canonical action verbs, amount buckets, and a
// deterministic id derived from content so re-ingestion reproduces the
// same rows byte for byte.
type Canonicalizer struct {
	resolver *resolve.Resolver
	logger   *zap.Logger
}

func NewCanonicalizer(resolver *resolve.Resolver, logger *zap.Logger) *Canonicalizer {
	return &Canonicalizer{resolver: resolver, logger: logger}
}

// Canonicalize maps one record to zero or more events. A non-empty skip
// reason with no error means the record is deliberately out of scope
// (income rows, unparseable dates) rather than broken.
func (c *Canonicalizer) Canonicalize(ctx context.Context, source string, kind adapter.Kind, rec adapter.RawRecord) ([]*models.Event, string, error) {
	switch kind {
	case adapter.KindTabularFiling, adapter.KindStructuredFiling:
		return c.filingEvent(ctx, source, rec)
	case adapter.KindLegislative:
		return c.legislativeEvent(ctx, source, rec)
	case adapter.KindNews, adapter.KindSocial:
		return c.sentimentEvents(ctx, source, kind, rec)
	default:
		return nil, fmt.Sprintf("kind %q does not produce events", kind), nil
	}
}

func (c *Canonicalizer) filingEvent(ctx context.Context, source string, rec adapter.RawRecord) ([]*models.Event, string, error) {
	asset := rec.Get("asset")
	txType := rec.Get("transaction type", "type")
	if canonical.HasExcludedToken([]string{asset, txType}) {
		return nil, "income or liability row", nil
	}
	action := canonical.CanonicalAction(txType)
	switch action {
	case canonical.ActionBuy, canonical.ActionSell, canonical.ActionExchange, canonical.ActionExercise:
	default:
		return nil, fmt.Sprintf("non-trade transaction type %q", txType), nil
	}

	occurredAt, ok := canonical.ParseDate(rec.Get("date", "transaction date", "filing date"))
	if !ok {
		return nil, "unparseable transaction date", nil
	}

	name, ticker := canonical.ParseAsset(asset)
	if sym := canonical.NormalizeTicker(rec.Get("ticker")); sym != "" {
		ticker = sym
	}
	if name == "" && ticker == "" {
		return nil, "no asset identity", nil
	}

	assetType := models.AssetTypeStock
	lowAsset := strings.ToLower(asset)
	switch {
	case strings.Contains(lowAsset, "option"), strings.Contains(lowAsset, "call"), strings.Contains(lowAsset, "put"):
		assetType = models.AssetTypeOption
	case strings.Contains(lowAsset, "etf"), strings.Contains(lowAsset, "fund"):
		assetType = models.AssetTypeETF
	}

	filer := rec.Get("actor", "filer", "member")
	var actorRef *string
	if filer != "" {
		id, err := c.resolver.ResolveActor(ctx, filer, "member")
		if err != nil {
			return nil, "", err
		}
		actorRef = &id
	}
	entityID, err := c.resolver.ResolveEntity(ctx, name, ticker, assetType)
	if err != nil {
		return nil, "", err
	}

	var bucketPtr *string
	if bucket, ok := canonical.ParseAmountBucket(rec.Get("amount")); ok {
		s := string(bucket)
		bucketPtr = &s
	}

	rawText := strings.Join([]string{
		rec.Get("owner"), asset, txType, rec.Get("date", "transaction date"), rec.Get("amount"),
	}, " | ")
	meta := map[string]string{}
	for _, key := range []string{"filing_id", "owner", "filing type"} {
		if v := rec.Get(key); v != "" {
			meta[key] = v
		}
	}

	ev := c.build(source, canonical.NormalizeText(rawText), action, actorRef, &entityID, bucketPtr, meta, occurredAt)
	return []*models.Event{ev}, "", nil
}

func (c *Canonicalizer) legislativeEvent(ctx context.Context, source string, rec adapter.RawRecord) ([]*models.Event, string, error) {
	occurredAt, ok := canonical.ParseDate(rec.Get("date"))
	if !ok {
		return nil, "unparseable action date", nil
	}
	var actorRef *string
	if sponsor := rec.Get("actor"); sponsor != "" {
		id, err := c.resolver.ResolveActor(ctx, sponsor, "sponsor")
		if err != nil {
			return nil, "", err
		}
		actorRef = &id
	}
	var entityRef *string
	if ticker := canonical.NormalizeTicker(rec.Get("ticker")); ticker != "" {
		id, err := c.resolver.ResolveEntity(ctx, "", ticker, models.AssetTypeStock)
		if err != nil {
			return nil, "", err
		}
		entityRef = &id
	}

	meta := map[string]string{}
	for _, key := range []string{"bill_id", "stance", "cosponsor_count", "subjects", "sector"} {
		if v := rec.Get(key); v != "" {
			meta[key] = v
		}
	}
	ev := c.build(source, canonical.NormalizeText(rec.Get("text")), canonical.ActionVote, actorRef, entityRef, nil, meta, occurredAt)
	return []*models.Event{ev}, "", nil
}

// sentimentEvents emits one event per mentioned ticker so each instrument
// carries its own signal. Tickerless items still produce a single event;
// the scorer fans those out by sector or crypto basket.
func (c *Canonicalizer) sentimentEvents(ctx context.Context, source string, kind adapter.Kind, rec adapter.RawRecord) ([]*models.Event, string, error) {
	occurredAt, ok := canonical.ParseDate(rec.Get("date"))
	if !ok {
		if t, err := time.Parse(time.RFC3339, rec.Get("date")); err == nil {
			occurredAt, ok = t, true
		}
	}
	if !ok {
		return nil, "unparseable publish date", nil
	}

	var actorRef *string
	if author := rec.Get("actor"); author != "" {
		role := "publisher"
		if kind == adapter.KindSocial {
			role = "account"
		}
		id, err := c.resolver.ResolveActor(ctx, author, role)
		if err != nil {
			return nil, "", err
		}
		actorRef = &id
	}

	meta := map[string]string{}
	for _, key := range []string{"item_id", "sentiment", "engagement"} {
		if v := rec.Get(key); v != "" {
			meta[key] = v
		}
	}
	text := canonical.NormalizeText(rec.Get("text"))

	var tickers []string
	if raw := rec.Get("tickers"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = canonical.NormalizeTicker(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	}
	if len(tickers) == 0 {
		ev := c.build(source, text, canonical.ActionStatement, actorRef, nil, nil, meta, occurredAt)
		return []*models.Event{ev}, "", nil
	}

	events := make([]*models.Event, 0, len(tickers))
	for _, ticker := range tickers {
		id, err := c.resolver.ResolveEntity(ctx, "", ticker, models.AssetTypeStock)
		if err != nil {
			return nil, "", err
		}
		entityID := id
		events = append(events, c.build(source, text, canonical.ActionStatement, actorRef, &entityID, nil, meta, occurredAt))
	}
	return events, "", nil
}

func (c *Canonicalizer) build(source, rawText, action string, actorRef, entityRef *string, bucket *string, meta map[string]string, occurredAt time.Time) *models.Event {
	hash := ContentHash(rawText, occurredAt, actorRef, entityRef)
	var metaJSON datatypes.JSON
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err == nil {
			metaJSON = datatypes.JSON(raw)
		}
	}
	return &models.Event{
		ID:           uuid.NewSHA1(eventNamespace, []byte(hash)).String(),
		Source:       source,
		ActorRef:     actorRef,
		EntityRef:    entityRef,
		Action:       action,
		AmountBucket: bucket,
		RawText:      rawText,
		Metadata:     metaJSON,
		OccurredAt:   occurredAt.UTC(),
		ContentHash:  hash,
	}
}

// ContentHash fingerprints the canonical fields that make two events the
// same disclosure. The feed name is deliberately excluded so the same
// filing delivered by two feeds collapses to one event.
func ContentHash(rawText string, occurredAt time.Time, actorRef, entityRef *string) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	payload := strings.Join([]string{
		rawText, occurredAt.UTC().Format(time.RFC3339), deref(actorRef), deref(entityRef),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
