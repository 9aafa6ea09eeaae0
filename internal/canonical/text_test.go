package canonical

import (
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Apple Inc.   —  common   stock "); got != "Apple Inc. - common stock" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDate_Formats(t *testing.T) {
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"03/15/2026",
		"03/15/26",
		"03-15-2026",
		"2026-03-15",
		"2026/03/15",
		"March 15, 2026",
		"Mar 15, 2026",
	} {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%q) not ok", in)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	got, ok := ParseDate("1/2/99")
	if !ok || got.Year() != 1999 {
		t.Fatalf("got %v ok=%v want year 1999", got, ok)
	}
	got, ok = ParseDate("1/2/10")
	if !ok || got.Year() != 2010 {
		t.Fatalf("got %v ok=%v want year 2010", got, ok)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, ok := ParseDate("not a date"); ok {
		t.Fatal("expected failure")
	}
	if _, ok := ParseDate("13/45/2026"); ok {
		t.Fatal("expected failure for impossible date")
	}
}

func TestParseAsset(t *testing.T) {
	name, ticker := ParseAsset("Apple Inc. (AAPL) [ST]")
	if name != "Apple Inc." || ticker != "AAPL" {
		t.Fatalf("got name=%q ticker=%q", name, ticker)
	}
	name, ticker = ParseAsset("Brookfield Renewable (BEP.UN)")
	if name != "Brookfield Renewable" || ticker != "BEP.UN" {
		t.Fatalf("got name=%q ticker=%q", name, ticker)
	}
	name, ticker = ParseAsset("US Treasury Notes")
	if name != "US Treasury Notes" || ticker != "" {
		t.Fatalf("got name=%q ticker=%q", name, ticker)
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker(" aapl "); got != "AAPL" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeTicker("$TSLA!"); got != "TSLA" {
		t.Fatalf("got %q", got)
	}
}
