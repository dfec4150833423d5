package decoder

import (
	"math/big"
	"testing"

	"reserveScope/internal/model"
)

func TestKeyTableDecodesReserves(t *testing.T) {
	table := NewKeyTable("WEGLD-bd4d79", "USDC-c76f1f")

	reserve := new(big.Int)
	reserve.SetString("2000000000000000000", 10)

	var change model.PairStateChange
	matched, err := table.Apply([]byte("reserveWEGLD-bd4d79"), reserve.Bytes(), &change)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatalf("reserve key not matched")
	}
	if change.Reserve0 == nil || change.Reserve0.String() != "2000000000000000000" {
		t.Fatalf("reserve0 mismatch: %+v", change.Reserve0)
	}

	matched, err = table.Apply([]byte("reserveUSDC-c76f1f"), big.NewInt(1000000).Bytes(), &change)
	if err != nil || !matched {
		t.Fatalf("second reserve not decoded: matched=%v err=%v", matched, err)
	}
	if change.Reserve1 == nil || change.Reserve1.String() != "1000000" {
		t.Fatalf("reserve1 mismatch: %+v", change.Reserve1)
	}
}

func TestKeyTableDecodesState(t *testing.T) {
	table := NewKeyTable("A", "B")

	var change model.PairStateChange
	if _, err := table.Apply([]byte("state"), []byte{1}, &change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.State == nil || *change.State != model.PairActive {
		t.Fatalf("state mismatch: %+v", change.State)
	}

	if _, err := table.Apply([]byte("state"), []byte{5}, &change); err == nil {
		t.Fatalf("expected error for unknown state index")
	}
	if _, err := table.Apply([]byte("state"), []byte{0, 1}, &change); err == nil {
		t.Fatalf("expected error for multi-byte state value")
	}
}

func TestKeyTableDecodesFeePercent(t *testing.T) {
	table := NewKeyTable("A", "B")

	var change model.PairStateChange
	if _, err := table.Apply([]byte("total_fee_percent"), big.NewInt(300).Bytes(), &change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.TotalFeePercent == nil || change.TotalFeePercent.String() != "0.003" {
		t.Fatalf("total fee mismatch: %+v", change.TotalFeePercent)
	}

	if _, err := table.Apply([]byte("special_fee_percent"), big.NewInt(50).Bytes(), &change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.SpecialFeePercent == nil || change.SpecialFeePercent.String() != "0.0005" {
		t.Fatalf("special fee mismatch: %+v", change.SpecialFeePercent)
	}
}

func TestKeyTableDecodesPoolTokenID(t *testing.T) {
	table := NewKeyTable("A", "B")

	var change model.PairStateChange
	if _, err := table.Apply([]byte("lp_token_identifier"), []byte("LPAB-123456"), &change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.PoolTokenID == nil || *change.PoolTokenID != "LPAB-123456" {
		t.Fatalf("pool token id mismatch: %+v", change.PoolTokenID)
	}

	if _, err := table.Apply([]byte("lp_token_identifier"), nil, &change); err == nil {
		t.Fatalf("expected error for empty pool token id")
	}
}

func TestKeyTableIgnoresUnknownKeys(t *testing.T) {
	table := NewKeyTable("A", "B")

	var change model.PairStateChange
	matched, err := table.Apply([]byte("some_other_key"), []byte{1, 2, 3}, &change)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("unknown key must not match")
	}
	if !change.Empty() {
		t.Fatalf("unknown key must not mutate the change set")
	}
}

func TestKeyTableEmptyValueIsZero(t *testing.T) {
	table := NewKeyTable("A", "B")

	var change model.PairStateChange
	if _, err := table.Apply([]byte("lp_token_supply"), nil, &change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.PoolTokenSupply == nil || change.PoolTokenSupply.String() != "0" {
		t.Fatalf("cleared supply must decode to zero: %+v", change.PoolTokenSupply)
	}
}
