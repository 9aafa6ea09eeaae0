package adapter

import (
	"fmt"

	"go.uber.org/zap"
)

// Kind tags a source family. Adapters dispatch on Kind rather than
// inheritance so each variant's failure mode stays local and explicit.
type Kind string

const (
	KindTabularFiling    Kind = "tabular_filing"
	KindStructuredFiling Kind = "structured_filing"
	KindLegislative      Kind = "legislative"
	KindNews             Kind = "news"
	KindSocial           Kind = "social"
	KindPrice            Kind = "price"
)

// RawRecord is the untyped field mapping a source adapter extracts from
// one document row/item. Keys are source-family specific; the
// canonicalizer owns turning them into Events.
type RawRecord map[string]string

func (r RawRecord) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Adapter parses one source family's native payload into RawRecords.
// A malformed record is skipped (logged by the adapter); a whole-document
// failure is returned as an error and the caller continues the batch.
type Adapter interface {
	Kind() Kind
	Parse(payload []byte) ([]RawRecord, error)
}

// ForKind returns the adapter for a source kind.
func ForKind(kind Kind, logger *zap.Logger) (Adapter, error) {
	switch kind {
	case KindTabularFiling:
		return &TabularAdapter{Logger: logger}, nil
	case KindStructuredFiling:
		return &StructuredAdapter{Logger: logger}, nil
	case KindLegislative:
		return &LegislativeAdapter{Logger: logger}, nil
	case KindNews:
		return &NewsAdapter{Logger: logger}, nil
	case KindSocial:
		return &SocialAdapter{Logger: logger}, nil
	case KindPrice:
		return &PriceAdapter{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
