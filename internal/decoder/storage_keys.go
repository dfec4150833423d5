package decoder

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"reserveScope/internal/model"
)

// feePercentBase is the fixed base the pair contract scales fee percents by.
const feePercentBase = 100_000

const (
	keyState             = "state"
	keyPoolTokenSupply   = "lp_token_supply"
	keyTotalFeePercent   = "total_fee_percent"
	keySpecialFeePercent = "special_fee_percent"
	keyPoolTokenID       = "lp_token_identifier"
	keyReservePrefix     = "reserve"
)

type decodeFunc func(val []byte, out *model.PairStateChange) error

// KeyTable maps exact storage-key bytes (hex-encoded) to typed decoders for
// one pair. Two of the keys embed the pair's token identifiers, so a table
// is built per pair. Keys absent from the table are not tracked.
type KeyTable struct {
	entries map[string]decodeFunc
}

// NewKeyTable builds the storage-key table for a pair from its two token
// identifiers.
func NewKeyTable(firstTokenID, secondTokenID string) KeyTable {
	return KeyTable{entries: map[string]decodeFunc{
		hexKey(keyState):                           decodeState,
		hexKey(keyPoolTokenSupply):                 decodePoolTokenSupply,
		hexKey(keyTotalFeePercent):                 decodeTotalFeePercent,
		hexKey(keySpecialFeePercent):               decodeSpecialFeePercent,
		hexKey(keyPoolTokenID):                     decodePoolTokenID,
		hexKey(keyReservePrefix + firstTokenID):    decodeReserve0,
		hexKey(keyReservePrefix + secondTokenID):   decodeReserve1,
	}}
}

// Apply decodes one raw key/value change into the change set. The boolean
// reports whether the key is tracked at all; untracked keys are not an error.
func (t KeyTable) Apply(key, val []byte, out *model.PairStateChange) (bool, error) {
	decode, ok := t.entries[hex.EncodeToString(key)]
	if !ok {
		return false, nil
	}
	if err := decode(val, out); err != nil {
		return true, err
	}
	return true, nil
}

func hexKey(name string) string {
	return hex.EncodeToString([]byte(name))
}

func decodeState(val []byte, out *model.PairStateChange) error {
	if len(val) != 1 {
		return fmt.Errorf("state value must be a single byte, got %d", len(val))
	}
	state, err := model.ParsePairState(val[0])
	if err != nil {
		return err
	}
	out.State = &state
	return nil
}

func decodePoolTokenSupply(val []byte, out *model.PairStateChange) error {
	supply := decodeBigUint(val)
	out.PoolTokenSupply = &supply
	return nil
}

func decodeReserve0(val []byte, out *model.PairStateChange) error {
	reserve := decodeBigUint(val)
	out.Reserve0 = &reserve
	return nil
}

func decodeReserve1(val []byte, out *model.PairStateChange) error {
	reserve := decodeBigUint(val)
	out.Reserve1 = &reserve
	return nil
}

func decodeTotalFeePercent(val []byte, out *model.PairStateChange) error {
	percent, err := decodeFeePercent(val)
	if err != nil {
		return err
	}
	out.TotalFeePercent = &percent
	return nil
}

func decodeSpecialFeePercent(val []byte, out *model.PairStateChange) error {
	percent, err := decodeFeePercent(val)
	if err != nil {
		return err
	}
	out.SpecialFeePercent = &percent
	return nil
}

func decodePoolTokenID(val []byte, out *model.PairStateChange) error {
	if len(val) == 0 {
		return fmt.Errorf("empty pool token identifier")
	}
	id := string(val)
	out.PoolTokenID = &id
	return nil
}

// decodeBigUint reads a big-endian unsigned big integer. An empty value is
// zero, matching the trie's representation of cleared entries.
func decodeBigUint(val []byte) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetBytes(val), 0)
}

func decodeFeePercent(val []byte) (decimal.Decimal, error) {
	raw := new(big.Int).SetBytes(val)
	if !raw.IsUint64() {
		return decimal.Decimal{}, fmt.Errorf("fee percent out of u64 range: %s", raw)
	}
	return decimal.NewFromBigInt(raw, 0).Div(decimal.NewFromInt(feePercentBase)), nil
}
