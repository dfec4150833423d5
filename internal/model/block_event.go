package model

// BlockStateEvent is the per-block message delivered by the state-change
// queue: one entry per touched account, each with its per-transaction
// storage-trie diffs.
type BlockStateEvent struct {
	Hash                    string                          `json:"hash"`
	ShardID                 uint32                          `json:"shardId"`
	Nonce                   uint64                          `json:"nonce"`
	TimestampMs             int64                           `json:"timestampMs"`
	StateAccessesPerAccount map[string]AccountStateAccesses `json:"stateAccessesPerAccount"`
}

// AccountStateAccesses groups one account's state accesses within a block.
type AccountStateAccesses struct {
	StateAccess []StateAccess `json:"stateAccess"`
}

// StateAccess is one transaction's captured storage access.
type StateAccess struct {
	TxHash          string           `json:"txHash"`
	Index           uint32           `json:"index"`
	DataTrieChanges []DataTrieChange `json:"dataTrieChanges,omitempty"`
}

// DataTrieChange is a single raw key/value mutation. Key and Val are
// base64-encoded raw bytes. Version 0 payloads are unsupported.
type DataTrieChange struct {
	Key     string `json:"key"`
	Val     string `json:"val"`
	Version uint32 `json:"version"`
}

// HasTrieChanges reports whether any account in the block carries at least
// one captured storage diff.
func (e *BlockStateEvent) HasTrieChanges() bool {
	for _, accesses := range e.StateAccessesPerAccount {
		for _, access := range accesses.StateAccess {
			if len(access.DataTrieChanges) > 0 {
				return true
			}
		}
	}
	return false
}
