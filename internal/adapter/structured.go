package adapter

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"grifttracker/internal/canonical"
)

// StructuredAdapter parses the machine-readable XML/CSV exports that
// accompany some filings. When both a structured export and a tabular
// rendering exist for one document the structured data is authoritative;
// the pipeline guarantees that by sequencing structured sources first, so
// the tabular rows lose the dedup race.
type StructuredAdapter struct {
	Logger *zap.Logger
}

func (a *StructuredAdapter) Kind() Kind { return KindStructuredFiling }

func (a *StructuredAdapter) Parse(payload []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("structured filing: empty payload")
	}
	if trimmed[0] == '<' {
		return a.parseXML(trimmed)
	}
	return a.parseCSV(trimmed)
}

type xmlTransaction struct {
	Filer        string `xml:"Filer"`
	First        string `xml:"First"`
	Last         string `xml:"Last"`
	FilingID     string `xml:"DocID"`
	Date         string `xml:"TransactionDate"`
	Owner        string `xml:"Owner"`
	Asset        string `xml:"Asset"`
	Ticker       string `xml:"Ticker"`
	Type         string `xml:"Type"`
	Amount       string `xml:"Amount"`
	FilingDate   string `xml:"FilingDate"`
	Notification string `xml:"NotificationDate"`
}

type xmlDisclosure struct {
	Transactions []xmlTransaction `xml:"Transaction"`
	Members      []xmlTransaction `xml:"Member"`
}

func (a *StructuredAdapter) parseXML(payload []byte) ([]RawRecord, error) {
	var doc xmlDisclosure
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("structured filing xml: %w", err)
	}

	items := doc.Transactions
	if len(items) == 0 {
		items = doc.Members
	}
	records := make([]RawRecord, 0, len(items))
	for _, tx := range items {
		actor := canonical.NormalizeText(tx.Filer)
		if actor == "" {
			actor = canonical.NormalizeText(strings.TrimSpace(tx.First + " " + tx.Last))
		}
		rec := RawRecord{
			"actor":            actor,
			"filing_id":        canonical.NormalizeText(tx.FilingID),
			"date":             canonical.NormalizeText(tx.Date),
			"owner":            canonical.NormalizeText(tx.Owner),
			"asset":            canonical.NormalizeText(tx.Asset),
			"ticker":           canonical.NormalizeText(tx.Ticker),
			"transaction type": canonical.NormalizeText(tx.Type),
			"amount":           canonical.NormalizeText(tx.Amount),
		}
		if rec["date"] == "" {
			rec["date"] = canonical.NormalizeText(tx.FilingDate)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *StructuredAdapter) parseCSV(payload []byte) ([]RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("structured filing csv: %w", err)
	}
	headers := cleanHeaders(header)

	var records []RawRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One malformed line fails on its own.
			if a.Logger != nil {
				a.Logger.Warn("structured filing csv: row skipped", zap.Int("line", line), zap.Error(err))
			}
			continue
		}
		rec := RawRecord{}
		for i, v := range row {
			if i < len(headers) {
				rec[headers[i]] = canonical.NormalizeText(v)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
