// Package wallet implements the exchange simulator's balance ledger: wallets
// keyed by (owner, address), a state machine gating deposits and withdraws,
// and a service that mirrors every lifecycle step onto an event stream.
package wallet

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fibonsai/exchange-simulator/internal/asset"
)

// Wallet is a balance record owned by the Ledger. Callers only see Snapshots.
type Wallet struct {
	owner   string
	address string
	asset   asset.Asset

	mu        sync.Mutex
	balance   decimal.Decimal
	state     State
	updatedAt time.Time
}

func newWallet(owner string, a asset.Asset, address string, now time.Time) *Wallet {
	return &Wallet{
		owner:     owner,
		address:   address,
		asset:     a,
		balance:   decimal.Zero,
		state:     StateOffline,
		updatedAt: now,
	}
}

// Key returns the wallet's ledger key.
func (w *Wallet) Key() Key {
	return Key{Owner: w.owner, Address: w.address}
}

// Snapshot returns a consistent copy of the wallet.
func (w *Wallet) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// snapshotNotify takes a snapshot and hands it to notify under the wallet mutex.
func (w *Wallet) snapshotNotify(notify func(Snapshot)) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := w.snapshotLocked()
	notify(snap)
	return snap
}

func (w *Wallet) snapshotLocked() Snapshot {
	return Snapshot{
		Owner:     w.owner,
		Address:   w.address,
		Asset:     w.asset,
		Balance:   w.balance,
		State:     w.state,
		UpdatedAt: w.updatedAt,
	}
}

func (w *Wallet) setState(state State, now time.Time) Snapshot {
	return w.setStateNotify(state, now, nil)
}

func (w *Wallet) setStateNotify(state State, now time.Time, notify func(Snapshot)) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
	w.updatedAt = now
	snap := w.snapshotLocked()
	if notify != nil {
		notify(snap)
	}
	return snap
}

// Snapshot is an immutable view of a wallet at a point in time.
type Snapshot struct {
	Owner     string
	Address   string
	Asset     asset.Asset
	Balance   decimal.Decimal
	State     State
	UpdatedAt time.Time
}

// Key returns the ledger key of the wallet the snapshot was taken from.
func (s Snapshot) Key() Key {
	return Key{Owner: s.Owner, Address: s.Address}
}

type snapshotJSON struct {
	UpdatedAt time.Time       `json:"timestamp"`
	Asset     string          `json:"asset"`
	State     State           `json:"state"`
	Address   string          `json:"walletAddress"`
	Owner     string          `json:"owner"`
	Balance   decimal.Decimal `json:"amount"`
}

// MarshalJSON encodes the snapshot with the asset reduced to its symbol.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		UpdatedAt: s.UpdatedAt,
		Asset:     s.Asset.Symbol,
		State:     s.State,
		Address:   s.Address,
		Owner:     s.Owner,
		Balance:   s.Balance,
	})
}

// String renders the snapshot as the JSON document used for event payloads.
func (s Snapshot) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}
