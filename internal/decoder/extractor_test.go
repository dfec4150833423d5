package decoder

import (
	"encoding/base64"
	"math/big"
	"testing"

	"reserveScope/internal/model"
)

type staticResolver map[string][2]string

func (r staticResolver) PairTokens(address string) (string, string, bool) {
	tokens, ok := r[address]
	return tokens[0], tokens[1], ok
}

const pairAddr = "0000000000000000000000000000000000000000000000000000000000000001"

func testResolver() staticResolver {
	return staticResolver{pairAddr: {"WEGLD-bd4d79", "USDC-c76f1f"}}
}

func b64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func trieChange(key string, val []byte) model.DataTrieChange {
	return model.DataTrieChange{Key: b64([]byte(key)), Val: b64(val), Version: 1}
}

func blockEvent(shard uint32, account string, accesses ...model.StateAccess) *model.BlockStateEvent {
	return &model.BlockStateEvent{
		Hash:    "abcd",
		ShardID: shard,
		Nonce:   42,
		StateAccessesPerAccount: map[string]model.AccountStateAccesses{
			account: {StateAccess: accesses},
		},
	}
}

func TestExtractorSkipsOtherShards(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(0, pairAddr, model.StateAccess{
		TxHash:          "tx1",
		DataTrieChanges: []model.DataTrieChange{trieChange("reserveWEGLD-bd4d79", big.NewInt(10).Bytes())},
	})

	if changes := extractor.Extract(event); changes != nil {
		t.Fatalf("expected no changes for foreign shard, got %d", len(changes))
	}
}

func TestExtractorSkipsUntrackedAccounts(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(1, "ffff", model.StateAccess{
		TxHash:          "tx1",
		DataTrieChanges: []model.DataTrieChange{trieChange("reserveWEGLD-bd4d79", big.NewInt(10).Bytes())},
	})

	if changes := extractor.Extract(event); len(changes) != 0 {
		t.Fatalf("expected no changes for untracked account, got %d", len(changes))
	}
}

func TestExtractorLastWriteWins(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(1, pairAddr,
		model.StateAccess{
			TxHash:          "tx1",
			DataTrieChanges: []model.DataTrieChange{trieChange("reserveWEGLD-bd4d79", big.NewInt(100).Bytes())},
		},
		model.StateAccess{
			TxHash:          "tx2",
			DataTrieChanges: []model.DataTrieChange{trieChange("reserveWEGLD-bd4d79", big.NewInt(250).Bytes())},
		},
	)

	changes := extractor.Extract(event)
	change, ok := changes[pairAddr]
	if !ok {
		t.Fatalf("expected change set for pair")
	}
	if change.Reserve0 == nil || change.Reserve0.String() != "250" {
		t.Fatalf("last write must win, got %+v", change.Reserve0)
	}
}

func TestExtractorSkipsUnsupportedVersion(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	unsupported := model.DataTrieChange{
		Key:     b64([]byte("reserveWEGLD-bd4d79")),
		Val:     b64(big.NewInt(10).Bytes()),
		Version: 0,
	}
	event := blockEvent(1, pairAddr, model.StateAccess{
		TxHash:          "tx1",
		DataTrieChanges: []model.DataTrieChange{unsupported},
	})

	if changes := extractor.Extract(event); len(changes) != 0 {
		t.Fatalf("version 0 change must be skipped, got %d change sets", len(changes))
	}
}

func TestExtractorIgnoresUnknownKeysAndDropsEmptySets(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(1, pairAddr, model.StateAccess{
		TxHash:          "tx1",
		DataTrieChanges: []model.DataTrieChange{trieChange("unrelated_key", []byte{1})},
	})

	if changes := extractor.Extract(event); len(changes) != 0 {
		t.Fatalf("unknown keys must not produce a change set, got %d", len(changes))
	}
}

func TestExtractorNoDiffsIsBenign(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(1, pairAddr, model.StateAccess{TxHash: "tx1"})

	if changes := extractor.Extract(event); len(changes) != 0 {
		t.Fatalf("account without captured diffs must contribute nothing, got %d", len(changes))
	}
}

func TestExtractorFlagsPoolTokenID(t *testing.T) {
	extractor := NewExtractor(1, testResolver(), nil)

	event := blockEvent(1, pairAddr, model.StateAccess{
		TxHash: "tx1",
		DataTrieChanges: []model.DataTrieChange{
			trieChange("lp_token_identifier", []byte("LPWEGLDUSDC-abcdef")),
			trieChange("lp_token_supply", big.NewInt(1000).Bytes()),
		},
	})

	changes := extractor.Extract(event)
	change, ok := changes[pairAddr]
	if !ok {
		t.Fatalf("expected change set for pair")
	}
	if change.PoolTokenID == nil || *change.PoolTokenID != "LPWEGLDUSDC-abcdef" {
		t.Fatalf("pool token id not flagged: %+v", change.PoolTokenID)
	}
	if change.PoolTokenSupply == nil || change.PoolTokenSupply.String() != "1000" {
		t.Fatalf("supply not decoded alongside: %+v", change.PoolTokenSupply)
	}
}
