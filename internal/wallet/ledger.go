package wallet

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"

	"github.com/fibonsai/exchange-simulator/internal/asset"
)

type ownerAsset struct {
	owner  string
	symbol string
}

// Ledger is the concurrency-safe store of wallets. Inserts check every
// creation rule and insert under a single write lock, so two racing creates
// for the same key, or for the same constrained (owner, asset), cannot both win.
type Ledger struct {
	mu            sync.RWMutex
	wallets       map[Key]*Wallet
	byAsset       map[ownerAsset][]*Wallet
	singleAddress mapset.Set[string]
}

// NewLedger builds an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		wallets:       make(map[Key]*Wallet),
		byAsset:       make(map[ownerAsset][]*Wallet),
		singleAddress: mapset.New[string](),
	}
}

// Create inserts an OFFLINE, zero-balance wallet.
func (l *Ledger) Create(owner string, a asset.Asset, address string) (*Wallet, error) {
	key := Key{Owner: owner, Address: address}
	idx := ownerAsset{owner: owner, symbol: a.Symbol}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.wallets[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	if l.singleAddress.Has(a.Symbol) && len(l.byAsset[idx]) > 0 {
		return nil, fmt.Errorf("%w: owner %s already holds a %s wallet", ErrMultipleAddressesNotAllowed, owner, a)
	}

	w := newWallet(owner, a, address, time.Now().UTC())
	l.wallets[key] = w
	l.byAsset[idx] = append(l.byAsset[idx], w)
	return w, nil
}

// LookupByKey returns the wallet stored under (owner, address).
func (l *Ledger) LookupByKey(owner, address string) (*Wallet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[Key{Owner: owner, Address: address}]
	return w, ok
}

// LookupByAsset returns the owner's wallet for a. More than one match is
// reported as ErrAmbiguousWallet.
func (l *Ledger) LookupByAsset(owner string, a asset.Asset) (*Wallet, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	matches := l.byAsset[ownerAsset{owner: owner, symbol: a.Symbol}]
	switch len(matches) {
	case 0:
		return nil, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return nil, false, fmt.Errorf("%w: owner %s holds %d %s wallets", ErrAmbiguousWallet, owner, len(matches), a)
	}
}

// Wallets returns the owner's wallets ordered by asset then address.
func (l *Ledger) Wallets(owner string) []*Wallet {
	l.mu.RLock()
	out := make([]*Wallet, 0)
	for key, w := range l.wallets {
		if key.Owner == owner {
			out = append(out, w)
		}
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Wallet) int {
		if c := a.asset.Compare(b.asset); c != 0 {
			return c
		}
		return cmp.Compare(a.address, b.address)
	})
	return out
}

// Len returns the number of wallets.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.wallets)
}

// SingleAddressAssets replaces the set of asset symbols limited to one
// address per owner. Existing wallets are not revisited.
func (l *Ledger) SingleAddressAssets(symbols []string) {
	set := mapset.New[string]()
	for _, s := range symbols {
		if a := asset.New(s); !a.IsZero() {
			set.Put(a.Symbol)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.singleAddress = set
}

// IsSingleAddress reports whether symbol is limited to one address per owner.
func (l *Ledger) IsSingleAddress(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.singleAddress.Has(asset.New(symbol).Symbol)
}

// Reset drops every wallet and the single-address set.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets = make(map[Key]*Wallet)
	l.byAsset = make(map[ownerAsset][]*Wallet)
	l.singleAddress = mapset.New[string]()
}
