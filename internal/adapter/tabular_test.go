package adapter

import "testing"

func TestTabularAdapter_HTMLTable(t *testing.T) {
	payload := []byte(`
<html><body><table>
<tr><th>Owner</th><th>Asset</th><th>Transaction Type</th><th>Date</th><th>Amount</th></tr>
<tr><td>SP</td><td>Apple Inc. (AAPL)</td><td>Purchase</td><td>03/15/2026</td><td>$50,001 - $100,000</td></tr>
<tr><td>JT</td><td>Spouse Salary</td><td></td><td>03/15/2026</td><td>$1,001 - $15,000</td></tr>
<tr><td>SP</td><td>Tesla Inc (TSLA)</td><td>Sale (Full)</td><td>03/16/2026</td><td>$15,001 - $50,000</td></tr>
</table></body></html>`)

	a := &TabularAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want=2 (salary row excluded)", len(records))
	}
	if got := records[0].Get("asset"); got != "Apple Inc. (AAPL)" {
		t.Fatalf("asset=%q", got)
	}
	if got := records[0].Get("transaction type"); got != "Purchase" {
		t.Fatalf("transaction type=%q", got)
	}
	if got := records[1].Get("amount"); got != "$15,001 - $50,000" {
		t.Fatalf("amount=%q", got)
	}
}

func TestTabularAdapter_Positional(t *testing.T) {
	payload := []byte(
		"Periodic Transaction Report\n" +
			"SP    Apple Inc. (AAPL)    Purchase    03/15/2026    $1,001 - $15,000\n" +
			"random narrative line with no amounts\n" +
			"JT    Microsoft Corp (MSFT)    Sale (Partial)    03/17/2026    $100,001 - $250,000\n")

	a := &TabularAdapter{}
	records, err := a.Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want=2", len(records))
	}
	if got := records[0].Get("owner"); got != "SP" {
		t.Fatalf("owner=%q", got)
	}
	if got := records[1].Get("transaction type"); got != "Sale (Partial)" {
		t.Fatalf("transaction type=%q", got)
	}
	if got := records[1].Get("date"); got != "03/17/2026" {
		t.Fatalf("date=%q", got)
	}
}

func TestTabularAdapter_EmptyPayload(t *testing.T) {
	a := &TabularAdapter{}
	if _, err := a.Parse([]byte("   ")); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
