// Package price extracts and normalizes prices from OCR-recognized text.
//
// The parser targets Argentine price-tag formats where the dot groups
// thousands and the comma marks decimals ($1.234,56). OCR output is noisy:
// digits come back as look-alike letters, separators get dropped, and price
// tags mix product codes with the actual price. The parser corrects common
// digit confusions, matches a set of price patterns from most to least
// specific, and applies plausibility bounds before accepting a value.
//
// The package is pure: no I/O, no state. Callers feed it raw recognized
// text and receive ordered candidates.
package price

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// MinPrice is the lowest value accepted during normalization.
	MinPrice = 1

	// MaxPrice is the highest value accepted during normalization.
	// Anything above this is treated as OCR noise (e.g., a barcode run).
	MaxPrice = 999999

	// MinShelfPrice and MaxShelfPrice bound the tighter plausibility band
	// used by AllValidPrices. MinShelfPrice is inclusive, MaxShelfPrice
	// exclusive.
	MinShelfPrice = 10
	MaxShelfPrice = 50000

	// maxLikelyPrice filters out improbably large candidates before the
	// most-likely heuristic picks the maximum.
	maxLikelyPrice = 100000
)

// Candidate is a single price found in text, in the order it appears.
type Candidate struct {
	// Raw is the exact substring that matched, after text cleanup.
	Raw string `json:"raw"`

	// Value is the normalized numeric price.
	Value float64 `json:"value"`

	// Position is the byte offset of the match in the cleaned text,
	// used for ordering and tie-breaking.
	Position int `json:"position"`
}

// ocrDigitReplacer rewrites letters that OCR engines commonly return in
// place of digits. Applied to the whole text, so it can misfire on genuine
// words, which is acceptable for price-tag input.
var ocrDigitReplacer = strings.NewReplacer(
	"O", "0", "o", "0",
	"l", "1", "I", "1", "|", "1",
	"S", "5", "s", "5",
	"B", "8",
	"Z", "2", "z", "2",
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// pricePattern pairs a regexp with the boundary rules that RE2 cannot
// express (no lookaround). Patterns are tried in order; a match whose span
// overlaps text claimed by an earlier, more specific pattern is discarded.
type pricePattern struct {
	re *regexp.Regexp

	// noDigitBefore/noDigitAfter reject matches adjacent to another digit,
	// so a loose pattern never matches the middle of a longer number.
	noDigitBefore bool
	noDigitAfter  bool
}

var pricePatterns = []pricePattern{
	// $1.234,56 — currency-marked, dot-grouped thousands, comma decimals.
	{re: regexp.MustCompile(`\$\s*\d{1,3}(?:\.\d{3})*,\d{2}`)},
	// 1.234,56 — same shape without the currency mark.
	{re: regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`), noDigitBefore: true, noDigitAfter: true},
	// $1.234 — currency-marked, thousands-grouped, no decimals.
	{re: regexp.MustCompile(`\$\s*\d{1,3}(?:\.\d{3})+`), noDigitAfter: true},
	// 1.234 — bare thousands group.
	{re: regexp.MustCompile(`\d{1,3}\.\d{3}`), noDigitBefore: true, noDigitAfter: true},
	// $1234 — currency-marked short number.
	{re: regexp.MustCompile(`\$\s*\d{2,4}`), noDigitAfter: true},
	// 1234 — bare short number; lowest confidence, catches prices OCR
	// rendered without any separator or currency mark.
	{re: regexp.MustCompile(`\d{2,4}`), noDigitBefore: true, noDigitAfter: true},
}

// CleanText collapses whitespace and corrects common OCR digit confusions.
func CleanText(text string) string {
	cleaned := whitespaceRe.ReplaceAllString(text, " ")
	cleaned = strings.TrimSpace(cleaned)
	return ocrDigitReplacer.Replace(cleaned)
}

// ExtractPrices finds every plausible price in the text, ordered by
// position ascending. Values are deduplicated: the first occurrence in
// text order keeps the position tag. Text without digits yields an empty
// slice; the function never fails.
func ExtractPrices(text string) []Candidate {
	if text == "" {
		return nil
	}

	cleaned := CleanText(text)

	var candidates []Candidate
	var claimed [][2]int
	seen := make(map[float64]bool)

	for _, p := range pricePatterns {
		for _, loc := range p.re.FindAllStringIndex(cleaned, -1) {
			start, end := loc[0], loc[1]
			if overlapsClaimed(claimed, start, end) {
				continue
			}
			if p.noDigitBefore && start > 0 && isDigit(cleaned[start-1]) {
				continue
			}
			if p.noDigitAfter && end < len(cleaned) && isDigit(cleaned[end]) {
				continue
			}

			raw := cleaned[start:end]
			value, ok := NormalizePrice(raw)
			if !ok {
				continue
			}
			// Matched spans are claimed even for duplicate values so a
			// looser pattern cannot re-match inside them.
			claimed = append(claimed, [2]int{start, end})
			if seen[value] {
				continue
			}
			seen[value] = true
			candidates = append(candidates, Candidate{
				Raw:      raw,
				Value:    value,
				Position: start,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Position < candidates[j].Position
	})

	return candidates
}

// NormalizePrice converts a matched price string to a numeric value.
//
// Separator disambiguation assumes Argentine grouping: when a comma is
// present it is the decimal point and all dots group thousands. With dots
// only, a single dot followed by exactly three digits is a thousands
// separator ("3.429" -> 3429), one or two trailing digits make it a
// decimal point ("3.50" -> 3.5), and multiple dots are all thousands
// separators.
//
// Returns false for anything unparseable or outside [MinPrice, MaxPrice].
func NormalizePrice(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, "$", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return 0, false
	}

	switch {
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case strings.Contains(cleaned, "."):
		dots := strings.Count(cleaned, ".")
		afterLast := len(cleaned) - strings.LastIndex(cleaned, ".") - 1
		if dots > 1 || afterLast == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
		// 1-2 trailing digits: already a valid decimal form.
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if value < MinPrice || value > MaxPrice {
		return 0, false
	}
	return value, true
}

// FindMostLikelyPrice picks the single best price in the text. With
// multiple candidates it drops improbably large values and returns the
// maximum of the rest: on a price tag the most prominent (largest) number
// is usually the total rather than a unit count or code fragment. If the
// filter removes everything, the first candidate by position wins.
func FindMostLikelyPrice(text string) (float64, bool) {
	candidates := ExtractPrices(text)
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 {
		return candidates[0].Value, true
	}

	best := 0.0
	found := false
	for _, c := range candidates {
		if c.Value < maxLikelyPrice && c.Value > best {
			best = c.Value
			found = true
		}
	}
	if !found {
		return candidates[0].Value, true
	}
	return best, true
}

// AllValidPrices returns every candidate inside the plausible shelf-price
// band [MinShelfPrice, MaxShelfPrice), deduplicated, sorted descending.
func AllValidPrices(text string) []float64 {
	var values []float64
	for _, c := range ExtractPrices(text) {
		if c.Value >= MinShelfPrice && c.Value < MaxShelfPrice {
			values = append(values, c.Value)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values
}

func overlapsClaimed(claimed [][2]int, start, end int) bool {
	for _, span := range claimed {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
