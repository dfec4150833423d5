package engine

import (
	"sort"

	"reserveScope/internal/model"
)

// Snapshot is the in-memory materialized view of every tracked pair and
// token. It is loaded once from persistence and then mutated in place by the
// engine, one block at a time. The sequential consumer model is what makes
// single-writer access safe; the snapshot itself carries no locking.
type Snapshot struct {
	pairs        map[string]*model.Pair
	tokens       map[string]*model.Token
	pairsByToken map[string][]*model.Pair
}

func NewSnapshot(pairs []model.Pair, tokens []model.Token) *Snapshot {
	s := &Snapshot{
		pairs:        make(map[string]*model.Pair, len(pairs)),
		tokens:       make(map[string]*model.Token, len(tokens)),
		pairsByToken: make(map[string][]*model.Pair),
	}
	for i := range pairs {
		pair := &pairs[i]
		s.pairs[pair.Address] = pair
		s.pairsByToken[pair.FirstTokenID] = append(s.pairsByToken[pair.FirstTokenID], pair)
		s.pairsByToken[pair.SecondTokenID] = append(s.pairsByToken[pair.SecondTokenID], pair)
	}
	for i := range tokens {
		token := &tokens[i]
		s.tokens[token.Identifier] = token
	}
	for _, list := range s.pairsByToken {
		sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
	}
	return s
}

func (s *Snapshot) Pair(address string) (*model.Pair, bool) {
	pair, ok := s.pairs[address]
	return pair, ok
}

func (s *Snapshot) Token(identifier string) (*model.Token, bool) {
	token, ok := s.tokens[identifier]
	return token, ok
}

// PairsFor lists every pair containing the token, ordered by address.
func (s *Snapshot) PairsFor(tokenID string) []*model.Pair {
	return s.pairsByToken[tokenID]
}

// PairTokens implements decoder.PairResolver.
func (s *Snapshot) PairTokens(address string) (string, string, bool) {
	pair, ok := s.pairs[address]
	if !ok {
		return "", "", false
	}
	return pair.FirstTokenID, pair.SecondTokenID, true
}

// Addresses returns every pair address in lexicographic order.
func (s *Snapshot) Addresses() []string {
	addresses := make([]string, 0, len(s.pairs))
	for address := range s.pairs {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// TokenIDs returns every token identifier in lexicographic order.
func (s *Snapshot) TokenIDs() []string {
	ids := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
