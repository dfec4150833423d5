package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"reserveScope/internal/model"
)

// quoteScale bounds the precision of quotient results. All other arithmetic
// in the engine is exact.
const quoteScale = 18

// quote prices one whole unit of token A in token B at current reserves,
// using the constant-product rule. A zero reserve yields the zero sentinel.
func quote(reserveA, reserveB decimal.Decimal, decimalsA, decimalsB uint32) decimal.Decimal {
	if reserveA.IsZero() {
		return decimal.Zero
	}
	return reserveB.Shift(int32(decimalsA) - int32(decimalsB)).DivRound(reserveA, quoteScale)
}

// parseDec reads a persisted decimal string. Empty or malformed values fall
// back to zero, the explicit "unavailable" sentinel.
func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// diffField writes the canonical form of next into the snapshot field and
// the diff slot when the value actually changed.
func diffField(slot **string, current *string, next decimal.Decimal) bool {
	text := next.String()
	if *current == text {
		return false
	}
	*slot = &text
	*current = text
	return true
}

func sortedChangeKeys(changes map[string]*model.PairStateChange) []string {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CommonTokenSet converts the whitelist into the set form Params carries.
func CommonTokenSet(identifiers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		set[id] = struct{}{}
	}
	return set
}
