package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"reserveScope/internal/model"
)

// pairValues holds one pair's recomputed USD aggregates for a pass.
type pairValues struct {
	firstUSD    decimal.Decimal
	secondUSD   decimal.Decimal
	locked0     decimal.Decimal
	locked1     decimal.Decimal
	lockedTotal decimal.Decimal
	lpPrice     decimal.Decimal
	hasLpPrice  bool
}

// aggregate computes per-pair locked values, per-token liquidity, and
// pool-token prices.
//
// A pair's total locked value counts both sides when the pair is Active or
// both tokens are whitelisted. An inactive pair with a single whitelisted
// side is valued at twice that side, since the other side cannot be trusted;
// with no whitelisted side it is worth zero. Token liquidity sums each
// token's own side under the same gating.
func (e *Engine) aggregate(params Params, usd map[string]decimal.Decimal) (map[string]pairValues, map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	values := make(map[string]pairValues, len(e.snap.pairs))
	liquidity := make(map[string]decimal.Decimal)
	lpPrices := make(map[string]decimal.Decimal)

	two := decimal.New(2, 0)
	for _, address := range e.snap.Addresses() {
		pair, _ := e.snap.Pair(address)
		first, ok := e.snap.Token(pair.FirstTokenID)
		if !ok {
			return nil, nil, nil, fmt.Errorf("token %s missing from snapshot", pair.FirstTokenID)
		}
		second, ok := e.snap.Token(pair.SecondTokenID)
		if !ok {
			return nil, nil, nil, fmt.Errorf("token %s missing from snapshot", pair.SecondTokenID)
		}

		pv := pairValues{
			firstUSD:  e.usdOf(pair.FirstTokenID, usd),
			secondUSD: e.usdOf(pair.SecondTokenID, usd),
		}
		pv.locked0 = parseDec(pair.Info.Reserve0).Shift(-int32(first.Decimals)).Mul(pv.firstUSD)
		pv.locked1 = parseDec(pair.Info.Reserve1).Shift(-int32(second.Decimals)).Mul(pv.secondUSD)

		_, firstCommon := params.CommonTokens[pair.FirstTokenID]
		_, secondCommon := params.CommonTokens[pair.SecondTokenID]
		trusted := pair.State == model.PairActive || (firstCommon && secondCommon)

		switch {
		case trusted:
			pv.lockedTotal = pv.locked0.Add(pv.locked1)
			liquidity[pair.FirstTokenID] = liquidity[pair.FirstTokenID].Add(pv.locked0)
			liquidity[pair.SecondTokenID] = liquidity[pair.SecondTokenID].Add(pv.locked1)
		case firstCommon:
			// Symmetric-value assumption over the trusted side.
			pv.lockedTotal = pv.locked0.Mul(two)
			liquidity[pair.FirstTokenID] = liquidity[pair.FirstTokenID].Add(pv.locked0)
		case secondCommon:
			pv.lockedTotal = pv.locked1.Mul(two)
			liquidity[pair.SecondTokenID] = liquidity[pair.SecondTokenID].Add(pv.locked1)
		default:
			pv.lockedTotal = decimal.Zero
		}

		// Pool-token price: proportional redemption of both reserves over
		// the total supply, never derived through the graph traversal. The
		// LP token may not exist yet while its deferred indexing task is in
		// flight; that is not an error.
		if pair.LiquidityPoolTokenID != "" {
			if lpToken, ok := e.snap.Token(pair.LiquidityPoolTokenID); ok {
				supplyUnits := parseDec(pair.Info.PoolTokenSupply).Shift(-int32(lpToken.Decimals))
				price := decimal.Zero
				if supplyUnits.IsPositive() {
					price = pv.locked0.Add(pv.locked1).DivRound(supplyUnits, quoteScale)
				}
				pv.lpPrice = price
				pv.hasLpPrice = true
				lpPrices[pair.LiquidityPoolTokenID] = price
			}
		}

		values[address] = pv
	}

	return values, liquidity, lpPrices, nil
}

// usdOf looks up a token's freshly derived USD price, falling back to the
// snapshot value for tokens outside the traversal (LP constituents).
func (e *Engine) usdOf(tokenID string, usd map[string]decimal.Decimal) decimal.Decimal {
	if price, ok := usd[tokenID]; ok {
		return price
	}
	if token, ok := e.snap.Token(tokenID); ok {
		return parseDec(token.Price)
	}
	return decimal.Zero
}
