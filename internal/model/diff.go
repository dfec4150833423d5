package model

// PairDiff carries only the pair fields one recomputation pass changed,
// keyed by address. Nil fields are not written.
type PairDiff struct {
	Address string

	Reserve0        *string
	Reserve1        *string
	PoolTokenSupply *string
	State           *PairState

	TotalFeePercent   *string
	SpecialFeePercent *string

	FirstTokenPrice     *string
	SecondTokenPrice    *string
	FirstTokenPriceUSD  *string
	SecondTokenPriceUSD *string

	FirstTokenLockedValueUSD  *string
	SecondTokenLockedValueUSD *string
	LockedValueUSD            *string

	LiquidityPoolTokenPriceUSD *string
}

// TokenDiff carries only the token fields one recomputation pass changed,
// keyed by identifier.
type TokenDiff struct {
	Identifier string

	Price        *string
	DerivedPrice *string
	LiquidityUSD *string
}

// BulkOperations is the minimal set of persistence writes produced by one
// recomputation pass.
type BulkOperations struct {
	Pairs  []PairDiff
	Tokens []TokenDiff
}

// Empty reports whether the pass produced no writes at all.
func (b BulkOperations) Empty() bool {
	return len(b.Pairs) == 0 && len(b.Tokens) == 0
}

// PriceUpdates lists [identifier, newPriceUSD] pairs for every token whose
// USD price changed, for the downstream price broadcast.
func (b BulkOperations) PriceUpdates() [][2]string {
	var updates [][2]string
	for _, diff := range b.Tokens {
		if diff.Price != nil {
			updates = append(updates, [2]string{diff.Identifier, *diff.Price})
		}
	}
	return updates
}
