package canonical

import "testing"

func TestCanonicalAction(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Purchase", ActionBuy},
		{"purchase", ActionBuy},
		{"P (partial)", ActionOther},
		{"Sale (Full)", ActionSell},
		{"Sale (Partial)", ActionSell},
		{"Sold", ActionSell},
		{"Bought", ActionBuy},
		{"Exchange", ActionExchange},
		{"Exercised", ActionExercise},
		{"", ActionOther},
		{"Dividend Reinvestment", ActionOther},
	}
	for _, tc := range cases {
		if got := CanonicalAction(tc.in); got != tc.want {
			t.Fatalf("CanonicalAction(%q)=%s want=%s", tc.in, got, tc.want)
		}
	}
}

func TestHasExcludedToken(t *testing.T) {
	if !HasExcludedToken([]string{"Spouse Salary - University"}) {
		t.Fatal("spouse salary should be excluded")
	}
	if !HasExcludedToken([]string{"Mortgage on residence"}) {
		t.Fatal("mortgage should be excluded")
	}
	if HasExcludedToken([]string{"Apple Inc. (AAPL)", "Purchase"}) {
		t.Fatal("plain trade row should not be excluded")
	}
	// Boundary matching: "rent" must not fire inside "parent".
	if HasExcludedToken([]string{"Parent Holdings Corp"}) {
		t.Fatal("substring of excluded word should not match")
	}
}
