package adapter

import (
	"fmt"

	"go.uber.org/zap"
)

// PriceAdapter maps OHLC time series JSON into one RawRecord per
// (symbol, date) bar.
type PriceAdapter struct {
	Logger *zap.Logger
}

func (a *PriceAdapter) Kind() Kind { return KindPrice }

type priceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []priceBar `json:"bars"`
}

type priceBar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func (a *PriceAdapter) Parse(payload []byte) ([]RawRecord, error) {
	series, err := decodeItems[priceSeries](payload)
	if err != nil {
		return nil, fmt.Errorf("price feed: %w", err)
	}

	var records []RawRecord
	for _, s := range series {
		if s.Symbol == "" {
			if a.Logger != nil {
				a.Logger.Warn("price feed: series without symbol skipped")
			}
			continue
		}
		for _, b := range s.Bars {
			if b.Date == "" || b.Close <= 0 {
				if a.Logger != nil {
					a.Logger.Warn("price feed: bad bar skipped",
						zap.String("symbol", s.Symbol), zap.String("date", b.Date))
				}
				continue
			}
			records = append(records, RawRecord{
				"symbol": s.Symbol,
				"date":   b.Date,
				"open":   fmtFloat(b.Open),
				"high":   fmtFloat(b.High),
				"low":    fmtFloat(b.Low),
				"close":  fmtFloat(b.Close),
			})
		}
	}
	return records, nil
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
