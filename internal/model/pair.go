package model

import "fmt"

// PairState mirrors the pair contract's state enum.
type PairState uint8

const (
	PairInactive PairState = iota
	PairActive
	PairPartialActive
)

// ParsePairState maps a raw contract enum index to a PairState.
func ParsePairState(index uint8) (PairState, error) {
	switch index {
	case 0:
		return PairInactive, nil
	case 1:
		return PairActive, nil
	case 2:
		return PairPartialActive, nil
	default:
		return PairInactive, fmt.Errorf("unknown pair state index: %d", index)
	}
}

func (s PairState) String() string {
	switch s {
	case PairInactive:
		return "Inactive"
	case PairActive:
		return "Active"
	case PairPartialActive:
		return "PartialActive"
	default:
		return fmt.Sprintf("PairState(%d)", uint8(s))
	}
}

// PairInfo holds the raw pool accounting fields, serialized as decimal strings.
type PairInfo struct {
	Reserve0        string `bson:"reserves0" json:"reserves0"`
	Reserve1        string `bson:"reserves1" json:"reserves1"`
	PoolTokenSupply string `bson:"totalSupply" json:"totalSupply"`
}

// Pair is the materialized view of one liquidity pair.
type Pair struct {
	Address       string    `bson:"address" json:"address"`
	FirstTokenID  string    `bson:"firstTokenId" json:"firstTokenId"`
	SecondTokenID string    `bson:"secondTokenId" json:"secondTokenId"`
	Info          PairInfo  `bson:"info" json:"info"`
	State         PairState `bson:"state" json:"state"`

	TotalFeePercent   string `bson:"totalFeePercent" json:"totalFeePercent"`
	SpecialFeePercent string `bson:"specialFeePercent" json:"specialFeePercent"`

	FirstTokenPrice     string `bson:"firstTokenPrice" json:"firstTokenPrice"`
	SecondTokenPrice    string `bson:"secondTokenPrice" json:"secondTokenPrice"`
	FirstTokenPriceUSD  string `bson:"firstTokenPriceUSD" json:"firstTokenPriceUSD"`
	SecondTokenPriceUSD string `bson:"secondTokenPriceUSD" json:"secondTokenPriceUSD"`

	FirstTokenLockedValueUSD  string `bson:"firstTokenLockedValueUSD" json:"firstTokenLockedValueUSD"`
	SecondTokenLockedValueUSD string `bson:"secondTokenLockedValueUSD" json:"secondTokenLockedValueUSD"`
	LockedValueUSD            string `bson:"lockedValueUSD" json:"lockedValueUSD"`

	// LiquidityPoolTokenID is set out-of-band by the deferred indexing task,
	// never by the engine.
	LiquidityPoolTokenID       string `bson:"liquidityPoolTokenId,omitempty" json:"liquidityPoolTokenId,omitempty"`
	LiquidityPoolTokenPriceUSD string `bson:"liquidityPoolTokenPriceUSD" json:"liquidityPoolTokenPriceUSD"`
}
