package decoder

import (
	"encoding/base64"

	"go.uber.org/zap"

	"reserveScope/internal/model"
)

// PairResolver resolves an account address to a tracked pair's token
// identifiers. Accounts that are not tracked pairs report ok=false.
type PairResolver interface {
	PairTokens(address string) (firstTokenID, secondTokenID string, ok bool)
}

// Extractor turns one block's per-account storage diffs into per-pair
// change sets.
type Extractor struct {
	shardID  uint32
	resolver PairResolver
	logger   *zap.Logger
	tables   map[string]KeyTable
}

func NewExtractor(shardID uint32, resolver PairResolver, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		shardID:  shardID,
		resolver: resolver,
		logger:   logger,
		tables:   make(map[string]KeyTable),
	}
}

// Extract produces the map of pair address to changed fields for one block.
// Within a block the last write to a field wins, since several transactions
// may touch the same storage key. Addresses whose change set ends up empty
// are dropped.
func (e *Extractor) Extract(event *model.BlockStateEvent) map[string]*model.PairStateChange {
	if event == nil || event.ShardID != e.shardID {
		return nil
	}

	changes := make(map[string]*model.PairStateChange)
	for account, accesses := range event.StateAccessesPerAccount {
		first, second, ok := e.resolver.PairTokens(account)
		if !ok {
			continue
		}

		change := &model.PairStateChange{}
		sawDiffs := false
		for _, access := range accesses.StateAccess {
			for _, trieChange := range access.DataTrieChanges {
				sawDiffs = true
				if trieChange.Version == 0 {
					e.logger.Warn("unsupported trie change version",
						zap.String("pair", account),
						zap.String("tx", access.TxHash),
						zap.Uint32("version", trieChange.Version),
					)
					continue
				}

				key, err := base64.StdEncoding.DecodeString(trieChange.Key)
				if err != nil {
					e.logger.Warn("malformed trie change key",
						zap.String("pair", account),
						zap.String("tx", access.TxHash),
						zap.Error(err),
					)
					continue
				}
				val, err := base64.StdEncoding.DecodeString(trieChange.Val)
				if err != nil {
					e.logger.Warn("malformed trie change value",
						zap.String("pair", account),
						zap.String("tx", access.TxHash),
						zap.Error(err),
					)
					continue
				}

				if _, err := e.tableFor(account, first, second).Apply(key, val, change); err != nil {
					e.logger.Warn("decode storage value",
						zap.String("pair", account),
						zap.String("tx", access.TxHash),
						zap.Error(err),
					)
				}
			}
		}

		if !sawDiffs {
			// A trie read with no captured diffs is benign, not corruption.
			e.logger.Warn("no trie changes captured for pair", zap.String("pair", account))
			continue
		}
		if change.Empty() {
			continue
		}
		changes[account] = change
	}

	return changes
}

func (e *Extractor) tableFor(address, firstTokenID, secondTokenID string) KeyTable {
	table, ok := e.tables[address]
	if !ok {
		table = NewKeyTable(firstTokenID, secondTokenID)
		e.tables[address] = table
	}
	return table
}
