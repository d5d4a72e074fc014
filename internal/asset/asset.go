package asset

import "strings"

// Kind classifies an asset.
type Kind string

const (
	KindFiat   Kind = "fiat"
	KindCrypto Kind = "crypto"
)

// Asset describes a tradable unit. Identity is the symbol alone.
type Asset struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	NumericCode int    `json:"numeric_code,omitempty"`
	Decimals    int32  `json:"decimals"`
}

// New returns an asset carrying only a symbol.
func New(symbol string) Asset {
	return Asset{Symbol: normalize(symbol)}
}

// Equal reports whether both assets share the same symbol.
func (a Asset) Equal(other Asset) bool {
	return a.Symbol == other.Symbol
}

// Compare orders assets by symbol.
func (a Asset) Compare(other Asset) int {
	return strings.Compare(a.Symbol, other.Symbol)
}

// IsZero reports whether the asset has no symbol.
func (a Asset) IsZero() bool {
	return a.Symbol == ""
}

func (a Asset) String() string {
	return a.Symbol
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
