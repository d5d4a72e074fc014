package wallet

import (
	"fmt"

	"github.com/fibonsai/exchange-simulator/internal/asset"
)

// Key uniquely identifies a wallet.
type Key struct {
	Owner   string
	Address string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Owner, k.Address)
}

type identifierKind uint8

const (
	byAddress identifierKind = iota + 1
	byAsset
)

// Identifier selects an owner's wallet either by address or by asset.
type Identifier struct {
	kind    identifierKind
	address string
	asset   asset.Asset
}

// ByAddress selects the wallet stored under the given address.
func ByAddress(address string) Identifier {
	return Identifier{kind: byAddress, address: address}
}

// ByAsset selects the owner's only wallet holding a.
func ByAsset(a asset.Asset) Identifier {
	return Identifier{kind: byAsset, asset: a}
}

func (id Identifier) String() string {
	switch id.kind {
	case byAddress:
		return "address:" + id.address
	case byAsset:
		return "asset:" + id.asset.Symbol
	default:
		return "unset"
	}
}
