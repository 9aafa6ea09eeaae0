package adapter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"grifttracker/internal/canonical"
)

var amountRangeGate = regexp.MustCompile(`\$\s*\d[\d,]*(?:\.\d+)?\s*-\s*\$\s*\d[\d,]*(?:\.\d+)?`)

// TabularAdapter extracts trade rows from table-structured disclosure
// documents. Bordered documents arrive as HTML tables; when no table
// markup survives extraction it falls back to positional text parsing.
// Amount fields stay ranges; the bucket is derived downstream.
type TabularAdapter struct {
	Logger *zap.Logger
}

func (a *TabularAdapter) Kind() Kind { return KindTabularFiling }

func (a *TabularAdapter) Parse(payload []byte) ([]RawRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("tabular filing: empty payload")
	}
	if bytes.Contains(payload, []byte("<table")) || bytes.Contains(payload, []byte("<TABLE")) {
		return a.parseHTML(payload)
	}
	return a.parsePositional(payload)
}

func (a *TabularAdapter) parseHTML(payload []byte) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tabular filing: %w", err)
	}

	var records []RawRecord
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("tr").Each(func(rowIdx int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, canonical.NormalizeText(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if headers == nil {
				headers = cleanHeaders(cells)
				return
			}
			rec := RawRecord{}
			for i, v := range cells {
				if i < len(headers) {
					rec[headers[i]] = v
				}
			}
			if a.keepRow(rec) {
				records = append(records, rec)
			}
		})
	})
	return records, nil
}

// parsePositional handles borderless extractions: plain text where each
// trade line carries an amount range. Columns are split on runs of two or
// more spaces, with a fixed column order matching the PTR layout
// (owner, asset, transaction type, date, amount).
func (a *TabularAdapter) parsePositional(payload []byte) ([]RawRecord, error) {
	var records []RawRecord
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimRight(line, " \r")
		if !amountRangeGate.MatchString(canonical.NormalizeText(line)) {
			continue
		}
		cols := splitColumns(line)
		if len(cols) < 5 {
			if a.Logger != nil {
				a.Logger.Debug("tabular filing: short positional row skipped", zap.String("line", line))
			}
			continue
		}
		rec := RawRecord{
			"owner":            cols[0],
			"asset":            cols[1],
			"transaction type": cols[2],
			"date":             cols[3],
			"amount":           cols[4],
		}
		if a.keepRow(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// keepRow applies the trade-row gates: an amount range present, an action
// or date column present, and no income/liability token.
func (a *TabularAdapter) keepRow(rec RawRecord) bool {
	values := make([]string, 0, len(rec))
	for _, v := range rec {
		values = append(values, v)
	}
	if canonical.HasExcludedToken(values) {
		return false
	}
	amount := rec.Get("amount", "amount range", "value", "value of asset")
	if !amountRangeGate.MatchString(canonical.NormalizeText(amount)) {
		return false
	}
	hasDate := rec.Get("date", "transaction date", "tx date", "trade date") != ""
	hasAction := rec.Get("transaction type", "type") != ""
	return hasDate || hasAction
}

func cleanHeaders(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		h := strings.ToLower(canonical.NormalizeText(c))
		if h == "" {
			h = fmt.Sprintf("col%d", i)
		}
		out[i] = h
	}
	return out
}

var columnSplitRe = regexp.MustCompile(`\s{2,}|\t+`)

func splitColumns(line string) []string {
	parts := columnSplitRe.Split(strings.TrimSpace(line), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, canonical.NormalizeText(p))
		}
	}
	return out
}
