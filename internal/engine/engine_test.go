package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"reserveScope/internal/model"
)

const (
	wegld = "WEGLD-bd4d79"
	usdc  = "USDC-c76f1f"
	mex   = "MEX-455c57"
	ride  = "RIDE-7d18e9"
	lpID  = "LPWEGLDUSDC-abcdef"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func token(id string, decimals uint32) model.Token {
	return model.Token{Identifier: id, Decimals: decimals, Type: model.TokenFungible}
}

func lpToken(id string, pairAddress string) model.Token {
	return model.Token{Identifier: id, Decimals: 18, Type: model.TokenLp, PairAddress: pairAddress}
}

func pair(address, first, second, reserve0, reserve1, supply string, state model.PairState) model.Pair {
	return model.Pair{
		Address:       address,
		FirstTokenID:  first,
		SecondTokenID: second,
		Info:          model.PairInfo{Reserve0: reserve0, Reserve1: reserve1, PoolTokenSupply: supply},
		State:         state,
	}
}

func testParams() Params {
	return Params{
		UsdRate:      dec("2"),
		CommonTokens: CommonTokenSet([]string{wegld, usdc}),
	}
}

func newTestEngine(pairs []model.Pair, tokens []model.Token) *Engine {
	return New(NewSnapshot(pairs, tokens), usdc, wegld, nil)
}

func findPairDiff(ops model.BulkOperations, address string) *model.PairDiff {
	for i := range ops.Pairs {
		if ops.Pairs[i].Address == address {
			return &ops.Pairs[i]
		}
	}
	return nil
}

func findTokenDiff(ops model.BulkOperations, identifier string) *model.TokenDiff {
	for i := range ops.Tokens {
		if ops.Tokens[i].Identifier == identifier {
			return &ops.Tokens[i]
		}
	}
	return nil
}

func TestQuoteCorrectnessAndIdempotence(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{pair("addr1", wegld, usdc, "2000000000000000000", "1000000", "1000000000000000000", model.PairActive)},
		[]model.Token{token(wegld, 18), token(usdc, 6)},
	)

	ops, err := e.RecomputeAll(testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := e.Snapshot().Pair("addr1")
	if p.FirstTokenPrice != "0.5" {
		t.Fatalf("firstTokenPrice = %q, want 0.5", p.FirstTokenPrice)
	}
	if p.SecondTokenPrice != "2" {
		t.Fatalf("secondTokenPrice = %q, want 2", p.SecondTokenPrice)
	}
	if findPairDiff(ops, "addr1") == nil {
		t.Fatalf("first recompute must emit the pair")
	}

	// WEGLD is the unit, pinned at the 2 USD spot rate; USDC anchors at
	// 1/rate in the reference currency, so exactly 1 USD.
	w, _ := e.Snapshot().Token(wegld)
	if w.Price != "2" || w.DerivedPrice != "1" {
		t.Fatalf("wegld price = %q derived = %q", w.Price, w.DerivedPrice)
	}
	u, _ := e.Snapshot().Token(usdc)
	if u.Price != "1" || u.DerivedPrice != "0.5" {
		t.Fatalf("usdc price = %q derived = %q", u.Price, u.DerivedPrice)
	}
	if p.LockedValueUSD != "5" {
		t.Fatalf("lockedValueUSD = %q, want 5", p.LockedValueUSD)
	}

	again, err := e.RecomputeAll(testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Empty() {
		t.Fatalf("second recompute over unchanged reserves must emit nothing, got %d pair ops %d token ops",
			len(again.Pairs), len(again.Tokens))
	}
}

func TestApplyChangesAlwaysWritesInstantPrices(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{pair("addr1", wegld, usdc, "2000000000000000000", "1000000", "1000000000000000000", model.PairActive)},
		[]model.Token{token(wegld, 18), token(usdc, 6)},
	)
	if _, err := e.RecomputeAll(testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := model.PairPartialActive
	ops, err := e.ApplyChanges(map[string]*model.PairStateChange{
		"addr1": {State: &state},
	}, testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff := findPairDiff(ops, "addr1")
	if diff == nil {
		t.Fatalf("expected a diff for the changed pair")
	}
	if diff.State == nil || *diff.State != model.PairPartialActive {
		t.Fatalf("state not echoed: %+v", diff.State)
	}
	if diff.FirstTokenPrice == nil || *diff.FirstTokenPrice != "0.5" {
		t.Fatalf("instantaneous price must always be written on a change, got %+v", diff.FirstTokenPrice)
	}
	if diff.SecondTokenPrice == nil || *diff.SecondTokenPrice != "2" {
		t.Fatalf("second price must always be written on a change, got %+v", diff.SecondTokenPrice)
	}
}

func TestCycleTermination(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{
			pair("addr1", mex, ride, "1000000000000000000", "1000000000000000000", "1000000000000000000", model.PairActive),
			pair("addr2", ride, mex, "2000000000000000000", "2000000000000000000", "1000000000000000000", model.PairActive),
		},
		[]model.Token{token(mex, 18), token(ride, 18)},
	)

	ops, err := e.RecomputeAll(testParams())
	if err != nil {
		t.Fatalf("derivation over a cyclic pair graph must terminate: %v", err)
	}

	// Neither token reaches the anchor or the wrapped coin, so both price
	// to the zero sentinel.
	for _, id := range []string{mex, ride} {
		diff := findTokenDiff(ops, id)
		if diff == nil || diff.Price == nil || *diff.Price != "0" {
			t.Fatalf("token %s must price to the zero sentinel, got %+v", id, diff)
		}
	}
}

func TestDeepestMarketWins(t *testing.T) {
	cases := []struct {
		name        string
		deepReserve string // WEGLD side of addr2
		want        string
	}{
		// addr2 holds 100 WEGLD against 200 MEX: deeper than addr1's 10,
		// so its 0.5 quote wins regardless of address order.
		{"second pair deeper", "100000000000000000000", "0.5"},
		// addr2 thinned down to 1 WEGLD: addr1's 1.0 quote wins.
		{"first pair deeper", "1000000000000000000", "1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(
				[]model.Pair{
					pair("addr1", mex, wegld, "10000000000000000000", "10000000000000000000", "1000000000000000000", model.PairActive),
					pair("addr2", mex, wegld, "200000000000000000000", tc.deepReserve, "1000000000000000000", model.PairActive),
				},
				[]model.Token{token(mex, 18), token(wegld, 18)},
			)

			if _, err := e.RecomputeAll(testParams()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			m, _ := e.Snapshot().Token(mex)
			if m.DerivedPrice != tc.want {
				t.Fatalf("mex derived price = %q, want %q", m.DerivedPrice, tc.want)
			}
		})
	}
}

func TestZeroSupplyPairYieldsNoPrice(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{pair("addr1", mex, wegld, "1000000000000000000", "1000000000000000000", "0", model.PairActive)},
		[]model.Token{token(mex, 18), token(wegld, 18)},
	)

	if _, err := e.RecomputeAll(testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, _ := e.Snapshot().Token(mex)
	if m.DerivedPrice != "0" {
		t.Fatalf("token priced only through a zero-supply pair must be zero, got %q", m.DerivedPrice)
	}
}

func TestWhitelistGating(t *testing.T) {
	pairs := []model.Pair{
		// Inactive, first side whitelisted: 2 WEGLD against 100 MEX.
		pair("addr1", wegld, mex, "2000000000000000000", "100000000000000000000", "1000000000000000000", model.PairInactive),
		// Active market that prices MEX at 0.01 WEGLD.
		pair("addr2", mex, wegld, "100000000000000000000", "1000000000000000000", "1000000000000000000", model.PairActive),
		// Inactive with neither token whitelisted.
		pair("addr3", mex, ride, "1000000000000000000", "1000000000000000000", "1000000000000000000", model.PairInactive),
	}
	e := newTestEngine(pairs, []model.Token{token(wegld, 18), token(mex, 18), token(ride, 18)})

	if _, err := e.RecomputeAll(testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p1, _ := e.Snapshot().Pair("addr1")
	if p1.FirstTokenLockedValueUSD != "4" {
		t.Fatalf("firstTokenLockedValueUSD = %q, want 4", p1.FirstTokenLockedValueUSD)
	}
	// MEX prices off the Active pair (0.01 WEGLD = 0.02 USD), so the
	// untrusted side would be worth 2; the symmetric-value rule doubles
	// the trusted side instead.
	if p1.LockedValueUSD != "8" {
		t.Fatalf("inactive pair with one whitelisted side: lockedValueUSD = %q, want 8", p1.LockedValueUSD)
	}

	p3, _ := e.Snapshot().Pair("addr3")
	if p3.LockedValueUSD != "0" {
		t.Fatalf("inactive pair with no whitelisted side: lockedValueUSD = %q, want 0", p3.LockedValueUSD)
	}
}

func TestDiffMinimality(t *testing.T) {
	pairs := []model.Pair{
		pair("addr1", wegld, usdc, "2000000000000000000", "1000000", "1000000000000000000", model.PairActive),
		pair("addr2", mex, wegld, "1000000000000000000000", "10000000000000000000", "1000000000000000000", model.PairActive),
	}
	e := newTestEngine(pairs, []model.Token{token(wegld, 18), token(usdc, 6), token(mex, 18)})
	if _, err := e.RecomputeAll(testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reserve := dec("4000000000000000000")
	ops, err := e.ApplyChanges(map[string]*model.PairStateChange{
		"addr1": {Reserve0: &reserve},
	}, testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ops.Pairs) != 1 || ops.Pairs[0].Address != "addr1" {
		t.Fatalf("only the changed pair may appear, got %+v", ops.Pairs)
	}
	if findTokenDiff(ops, mex) != nil {
		t.Fatalf("mex is unrelated to the change and must not appear")
	}
	w := findTokenDiff(ops, wegld)
	if w == nil || w.LiquidityUSD == nil {
		t.Fatalf("wegld liquidity depends on the changed pair and must appear, got %+v", w)
	}
	if w.Price != nil || w.DerivedPrice != nil {
		t.Fatalf("wegld price did not change and must not be written, got %+v", w)
	}
}

func TestLpTokenPricing(t *testing.T) {
	p := pair("addr1", wegld, usdc, "2000000000000000000", "1000000", "1000000000000000000", model.PairActive)
	p.LiquidityPoolTokenID = lpID
	e := newTestEngine(
		[]model.Pair{p},
		[]model.Token{token(wegld, 18), token(usdc, 6), lpToken(lpID, "addr1")},
	)

	ops, err := e.RecomputeAll(testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 4 USD of WEGLD plus 1 USD of USDC redeemed over 1 pool token.
	lp := findTokenDiff(ops, lpID)
	if lp == nil || lp.Price == nil || *lp.Price != "5" {
		t.Fatalf("lp token price diff = %+v, want 5", lp)
	}
	if lp.DerivedPrice != nil {
		t.Fatalf("lp tokens are excluded from the traversal, derived price must not be written")
	}

	snapPair, _ := e.Snapshot().Pair("addr1")
	if snapPair.LiquidityPoolTokenPriceUSD != "5" {
		t.Fatalf("pair lp price = %q, want 5", snapPair.LiquidityPoolTokenPriceUSD)
	}

	// Supply drained to zero: the price falls back to the zero sentinel.
	zero := dec("0")
	if _, err := e.ApplyChanges(map[string]*model.PairStateChange{
		"addr1": {PoolTokenSupply: &zero},
	}, testParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lpTok, _ := e.Snapshot().Token(lpID)
	if lpTok.Price != "0" {
		t.Fatalf("zero-supply lp price = %q, want 0", lpTok.Price)
	}
}

func TestMissingPairIsInvariantViolation(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{pair("addr1", wegld, usdc, "1", "1", "1", model.PairActive)},
		[]model.Token{token(wegld, 18), token(usdc, 6)},
	)

	reserve := dec("5")
	if _, err := e.ApplyChanges(map[string]*model.PairStateChange{
		"unknown": {Reserve0: &reserve},
	}, testParams()); err == nil {
		t.Fatalf("expected error for pair missing from snapshot")
	}
}

func TestMissingTokenIsInvariantViolation(t *testing.T) {
	e := newTestEngine(
		[]model.Pair{pair("addr1", wegld, "GHOST-000000", "1", "1", "1", model.PairActive)},
		[]model.Token{token(wegld, 18)},
	)

	if _, err := e.RecomputeAll(testParams()); err == nil {
		t.Fatalf("expected error for token missing from snapshot")
	}
}
