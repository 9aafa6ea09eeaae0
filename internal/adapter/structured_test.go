package adapter

import "testing"

func TestStructuredAdapter_XML(t *testing.T) {
	payload := []byte(`<?xml version="1.0"?>
<FinancialDisclosure>
  <Transaction>
    <First>Jane</First>
    <Last>Doe</Last>
    <DocID>20026419</DocID>
    <TransactionDate>03/15/2026</TransactionDate>
    <Owner>SP</Owner>
    <Asset>Apple Inc. (AAPL)</Asset>
    <Ticker>AAPL</Ticker>
    <Type>Purchase</Type>
    <Amount>$50,001 - $100,000</Amount>
    <FilingDate>03/20/2026</FilingDate>
  </Transaction>
  <Transaction>
    <Filer>John Roe</Filer>
    <DocID>20026420</DocID>
    <Owner>JT</Owner>
    <Asset>Tesla Inc (TSLA)</Asset>
    <Type>Sale (Full)</Type>
    <Amount>$15,001 - $50,000</Amount>
    <FilingDate>03/21/2026</FilingDate>
  </Transaction>
</FinancialDisclosure>`)

	a := &StructuredAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want=2", len(records))
	}
	if got := records[0].Get("actor"); got != "Jane Doe" {
		t.Fatalf("actor=%q want Jane Doe", got)
	}
	if got := records[0].Get("date"); got != "03/15/2026" {
		t.Fatalf("date=%q", got)
	}
	// Second transaction has no TransactionDate; the filing date stands in.
	if got := records[1].Get("date"); got != "03/21/2026" {
		t.Fatalf("fallback date=%q", got)
	}
	if got := records[1].Get("actor"); got != "John Roe" {
		t.Fatalf("actor=%q want John Roe", got)
	}
}

func TestStructuredAdapter_CSV(t *testing.T) {
	payload := []byte(
		"Actor,Asset,Ticker,Transaction Type,Date,Amount\n" +
			"Jane Doe,Apple Inc. (AAPL),AAPL,Purchase,03/15/2026,\"$1,001 - $15,000\"\n" +
			"John Roe,Microsoft Corp (MSFT),MSFT,Sale (Partial),03/17/2026,\"$100,001 - $250,000\"\n")

	a := &StructuredAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want=2", len(records))
	}
	if got := records[0].Get("ticker"); got != "AAPL" {
		t.Fatalf("ticker=%q", got)
	}
	if got := records[1].Get("amount"); got != "$100,001 - $250,000" {
		t.Fatalf("amount=%q", got)
	}
}

func TestStructuredAdapter_EmptyPayload(t *testing.T) {
	a := &StructuredAdapter{}
	if _, err := a.Parse(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
