package model

// TokenType distinguishes regular fungible tokens from LP receipt tokens.
type TokenType string

const (
	TokenFungible TokenType = "Fungible"
	TokenLp       TokenType = "FungibleLpToken"
)

// Token is the materialized view of one tracked token.
type Token struct {
	Identifier string    `bson:"identifier" json:"identifier"`
	Decimals   uint32    `bson:"decimals" json:"decimals"`
	Type       TokenType `bson:"type" json:"type"`

	// Price is the USD price; DerivedPrice is the price expressed in the
	// chain's native coin.
	Price        string `bson:"price" json:"price"`
	DerivedPrice string `bson:"derivedPrice" json:"derivedPrice"`
	LiquidityUSD string `bson:"liquidityUSD" json:"liquidityUSD"`

	// PairAddress back-references the owning pair for LP tokens.
	PairAddress string `bson:"pairAddress,omitempty" json:"pairAddress,omitempty"`
}
