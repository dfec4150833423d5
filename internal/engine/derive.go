package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"reserveScope/internal/model"
)

// derivedPrice computes a token's price in the reference currency by
// depth-first search over the pair graph. The memo lives for one
// recomputation pass; visited guards a single derivation branch against
// cycles. A token that is unreachable, or reachable only through pairs with
// zero pool-token supply, prices to the zero sentinel.
func (e *Engine) derivedPrice(tokenID string, ps *passState, visited map[string]struct{}) (decimal.Decimal, error) {
	if price, ok := ps.memo[tokenID]; ok {
		return price, nil
	}

	// The USD-stable anchor is priced by convention from the pinned spot
	// rate, and the wrapped native coin is the unit itself.
	if tokenID == e.anchorTokenID {
		price := decimal.Zero
		if ps.params.UsdRate.IsPositive() {
			price = decimal.NewFromInt(1).DivRound(ps.params.UsdRate, quoteScale)
		}
		ps.memo[tokenID] = price
		return price, nil
	}
	if tokenID == e.wrappedTokenID {
		one := decimal.New(1, 0)
		ps.memo[tokenID] = one
		return one, nil
	}

	token, ok := e.snap.Token(tokenID)
	if !ok {
		return decimal.Zero, fmt.Errorf("token %s missing from snapshot", tokenID)
	}

	candidates := e.candidatePairs(tokenID, visited)
	for _, pair := range candidates {
		visited[pair.Address] = struct{}{}
	}

	best := decimal.Zero
	bestLiquidity := decimal.Zero
	found := false
	for _, pair := range candidates {
		if parseDec(pair.Info.PoolTokenSupply).IsZero() {
			continue
		}

		otherID, tokenReserve, otherReserve := otherSide(pair, tokenID)
		other, ok := e.snap.Token(otherID)
		if !ok {
			return decimal.Zero, fmt.Errorf("token %s missing from snapshot", otherID)
		}

		otherPrice, err := e.derivedPrice(otherID, ps, visited)
		if err != nil {
			return decimal.Zero, err
		}

		// Deepest market wins: the candidate with the largest
		// reference-currency liquidity on the far side sets the price, to
		// resist pricing off thin or manipulated pools. Candidates are
		// address-ordered and the comparison is strict, so equal depth
		// resolves to the lexicographically smallest pair.
		otherLiquidity := otherReserve.Shift(-int32(other.Decimals)).Mul(otherPrice)
		price := quote(tokenReserve, otherReserve, token.Decimals, other.Decimals).Mul(otherPrice)
		if !found || otherLiquidity.GreaterThan(bestLiquidity) {
			best = price
			bestLiquidity = otherLiquidity
			found = true
		}
	}

	ps.memo[tokenID] = best
	return best, nil
}

// candidatePairs gathers the pairs usable to price a token: when an Active
// market exists among several, non-active ones are ignored; pairs already
// visited on this branch are excluded.
func (e *Engine) candidatePairs(tokenID string, visited map[string]struct{}) []*model.Pair {
	all := e.snap.PairsFor(tokenID)

	if len(all) > 1 {
		active := make([]*model.Pair, 0, len(all))
		for _, pair := range all {
			if pair.State == model.PairActive {
				active = append(active, pair)
			}
		}
		if len(active) > 0 {
			all = active
		}
	}

	candidates := make([]*model.Pair, 0, len(all))
	for _, pair := range all {
		if _, seen := visited[pair.Address]; seen {
			continue
		}
		candidates = append(candidates, pair)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Address < candidates[j].Address })
	return candidates
}

// otherSide returns the opposite token of a pair plus both reserves, with
// the queried token's reserve first.
func otherSide(pair *model.Pair, tokenID string) (string, decimal.Decimal, decimal.Decimal) {
	reserve0 := parseDec(pair.Info.Reserve0)
	reserve1 := parseDec(pair.Info.Reserve1)
	if pair.FirstTokenID == tokenID {
		return pair.SecondTokenID, reserve0, reserve1
	}
	return pair.FirstTokenID, reserve1, reserve0
}
