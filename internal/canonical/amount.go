package canonical

import (
	"regexp"
	"strconv"
	"strings"
)

// AmountBucket is the discrete disclosed range replacing an unknown exact
// trade amount. Sources never disclose point estimates, so buckets are the
// finest-grained amount information the system carries.
type AmountBucket string

const (
	BucketUnder1K  AmountBucket = "0-1k"
	Bucket1K15K    AmountBucket = "1k-15k"
	Bucket15K50K   AmountBucket = "15k-50k"
	Bucket50K100K  AmountBucket = "50k-100k"
	Bucket100K250K AmountBucket = "100k-250k"
	Bucket250K500K AmountBucket = "250k-500k"
	Bucket500K1M   AmountBucket = "500k-1m"
	Bucket1M5M     AmountBucket = "1m-5m"
	Bucket5M25M    AmountBucket = "5m-25m"
	Bucket25M50M   AmountBucket = "25m-50m"
	BucketOver50M  AmountBucket = "50m+"
)

// bucketTable follows the Senate disclosure ranges, the superset of the
// House ones. Score is the bucket ordinal used as trade base score.
var bucketTable = []struct {
	lo     int64
	hi     int64
	bucket AmountBucket
	score  float64
}{
	{0, 1000, BucketUnder1K, 0},
	{1001, 15000, Bucket1K15K, 1},
	{15001, 50000, Bucket15K50K, 2},
	{50001, 100000, Bucket50K100K, 3},
	{100001, 250000, Bucket100K250K, 4},
	{250001, 500000, Bucket250K500K, 5},
	{500001, 1000000, Bucket500K1M, 6},
	{1000001, 5000000, Bucket1M5M, 7},
	{5000001, 25000000, Bucket5M25M, 8},
	{25000001, 50000000, Bucket25M50M, 9},
	{50000001, 1 << 62, BucketOver50M, 10},
}

var (
	amountRangeRe  = regexp.MustCompile(`(?i)\$?\s*([\d,]+(?:\.\d+)?)\s*(?:-|to)\s*\$?\s*([\d,]+(?:\.\d+)?)`)
	amountOverRe   = regexp.MustCompile(`(?i)over\s+\$?([\d,]+(?:\.\d+)?)`)
	amountUnderRe  = regexp.MustCompile(`(?i)(?:less than|under)\s+\$?([\d,]+(?:\.\d+)?)`)
	amountSingleRe = regexp.MustCompile(`^\$?\s*([\d,]+(?:\.\d+)?)$`)
)

// ParseAmountRange parses text like "$50,001 - $100,000" into integer
// bounds. "Over $X" yields hi=0; "less than $X" yields lo=0.
func ParseAmountRange(amountText string) (lo, hi int64, ok bool) {
	text := NormalizeText(amountText)
	if text == "" {
		return 0, 0, false
	}

	if m := amountRangeRe.FindStringSubmatch(text); m != nil {
		lo = coerceInt(m[1])
		hi = coerceInt(m[2])
		if lo > hi && hi > 0 {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	if m := amountUnderRe.FindStringSubmatch(text); m != nil {
		return 0, coerceInt(m[1]), true
	}
	if m := amountOverRe.FindStringSubmatch(text); m != nil {
		return coerceInt(m[1]), 0, true
	}
	if m := amountSingleRe.FindStringSubmatch(text); m != nil {
		v := coerceInt(m[1])
		return v, v, true
	}
	return 0, 0, false
}

// BucketForRange snaps parsed bounds onto the disclosure bucket enum.
func BucketForRange(lo, hi int64) (AmountBucket, bool) {
	if lo == 0 && hi == 0 {
		return "", false
	}
	for _, b := range bucketTable {
		if hi > 0 {
			if lo >= b.lo && hi <= b.hi {
				return b.bucket, true
			}
			continue
		}
		// Open-ended "over $X": the range starts just above the stated
		// bound, so classify by lo+1.
		if lo+1 >= b.lo && lo+1 <= b.hi {
			return b.bucket, true
		}
	}
	return "", false
}

// ParseAmountBucket is the one-step convenience used by adapters.
func ParseAmountBucket(amountText string) (AmountBucket, bool) {
	lo, hi, ok := ParseAmountRange(amountText)
	if !ok {
		return "", false
	}
	return BucketForRange(lo, hi)
}

// BucketScore returns the unsigned base score for a bucket.
func BucketScore(bucket AmountBucket) float64 {
	for _, b := range bucketTable {
		if b.bucket == bucket {
			return b.score
		}
	}
	return 0
}

func coerceInt(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
