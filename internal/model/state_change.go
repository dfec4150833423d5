package model

import "github.com/shopspring/decimal"

// PairStateChange records only the fields one block actually mutated for a
// pair. Nil fields are unchanged, not zero; the snapshot value is kept.
type PairStateChange struct {
	Reserve0        *decimal.Decimal
	Reserve1        *decimal.Decimal
	PoolTokenSupply *decimal.Decimal
	State           *PairState

	TotalFeePercent   *decimal.Decimal
	SpecialFeePercent *decimal.Decimal

	// PoolTokenID is flagged here for the deferred indexing task only; it is
	// never merged into the snapshot or the emitted diff, because resolving
	// the new token's decimals and type is not possible synchronously during
	// block processing.
	PoolTokenID *string
}

// Empty reports whether the change carries no fields at all.
func (c *PairStateChange) Empty() bool {
	return c.Reserve0 == nil &&
		c.Reserve1 == nil &&
		c.PoolTokenSupply == nil &&
		c.State == nil &&
		c.TotalFeePercent == nil &&
		c.SpecialFeePercent == nil &&
		c.PoolTokenID == nil
}

// HasMergeableFields reports whether the change carries anything beyond the
// deferred pool-token identifier.
func (c *PairStateChange) HasMergeableFields() bool {
	return c.Reserve0 != nil ||
		c.Reserve1 != nil ||
		c.PoolTokenSupply != nil ||
		c.State != nil ||
		c.TotalFeePercent != nil ||
		c.SpecialFeePercent != nil
}
