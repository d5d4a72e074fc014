package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fibonsai/exchange-simulator/internal/asset"
	"github.com/fibonsai/exchange-simulator/internal/event"
)

// AssetCatalog supplies the default asset used by the default-wallet operations.
type AssetCatalog interface {
	Default() (asset.Asset, error)
}

// Observer is notified about every emitted event and every failed delivery.
type Observer interface {
	ObserveEvent(e event.Event)
	ObserveDeliveryFailure(err error)
}

// Option customises a Service.
type Option func(*Service)

// WithEventOptions configures every bus the service installs.
func WithEventOptions(opts ...event.Option) Option {
	return func(s *Service) {
		s.busOpts = append(s.busOpts, opts...)
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithClock overrides the time source used for wallet timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the wallet facade. Every creation, state change and
// transaction attempt is mirrored as exactly one event. Events about one
// wallet are published while its lock is held, so subscribers see them in
// the order the changes were applied.
type Service struct {
	catalog   AssetCatalog
	logger    *slog.Logger
	ledger    *Ledger
	busOpts   []event.Option
	observers []Observer
	now       func() time.Time

	mu  sync.RWMutex
	bus *event.Bus
}

// NewService constructs a wallet service with an empty ledger and a fresh event bus.
func NewService(catalog AssetCatalog, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog: catalog,
		logger:  logger,
		ledger:  NewLedger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bus = event.NewBus(s.busOpts...)
	return s
}

// CreateDefaultWallet creates a wallet for the catalog's default asset at a generated address.
func (s *Service) CreateDefaultWallet(ctx context.Context, owner string) (Snapshot, error) {
	trace := traceID(ctx)
	a, err := s.defaultAsset()
	if err != nil {
		return Snapshot{}, s.fail(ctx, trace, fmt.Sprintf("create default wallet for %s", owner), err)
	}
	return s.create(ctx, trace, owner, a, uuid.NewString())
}

// CreateWallet creates a wallet for a at a generated address.
func (s *Service) CreateWallet(ctx context.Context, owner string, a asset.Asset) (Snapshot, error) {
	return s.create(ctx, traceID(ctx), owner, a, uuid.NewString())
}

// CreateWalletWithAddress creates a wallet for a at address. An empty
// address is replaced with a generated one.
func (s *Service) CreateWalletWithAddress(ctx context.Context, owner string, a asset.Asset, address string) (Snapshot, error) {
	if strings.TrimSpace(address) == "" {
		address = uuid.NewString()
	}
	return s.create(ctx, traceID(ctx), owner, a, address)
}

func (s *Service) create(ctx context.Context, trace, owner string, a asset.Asset, address string) (Snapshot, error) {
	desc := fmt.Sprintf("create %s wallet %s for %s", a, address, owner)
	if strings.TrimSpace(owner) == "" {
		return Snapshot{}, s.fail(ctx, trace, desc, fmt.Errorf("%w: owner is required", ErrInvalidArgument))
	}
	if a.IsZero() {
		return Snapshot{}, s.fail(ctx, trace, desc, fmt.Errorf("%w: asset is required", ErrInvalidArgument))
	}

	w, err := s.ledger.Create(owner, a, address)
	if err != nil {
		return Snapshot{}, s.fail(ctx, trace, desc, err)
	}
	snap := w.snapshotNotify(func(snap Snapshot) {
		s.emit(ctx, event.Info(snap.String(), trace))
	})
	s.logger.InfoContext(ctx, "wallet created",
		slog.String("owner", owner),
		slog.String("asset", a.Symbol),
		slog.String("address", address),
		slog.String("trace_id", trace),
	)
	return snap, nil
}

// GetDefaultWallet returns the owner's wallet for the default asset.
func (s *Service) GetDefaultWallet(ctx context.Context, owner string) (Snapshot, error) {
	a, err := s.defaultAsset()
	if err != nil {
		return Snapshot{}, err
	}
	return s.GetWallet(ctx, owner, a)
}

// GetWallet returns the owner's only wallet for a. ErrWalletNotFound reports
// absence; ErrAmbiguousWallet is logged and mirrored as an ERROR event.
func (s *Service) GetWallet(ctx context.Context, owner string, a asset.Asset) (Snapshot, error) {
	w, err := s.lookup(ctx, owner, ByAsset(a))
	if err != nil {
		if errors.Is(err, ErrAmbiguousWallet) {
			return Snapshot{}, s.fail(ctx, traceID(ctx), fmt.Sprintf("lookup %s wallet for %s", a, owner), err)
		}
		return Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// GetWalletByAddress returns the wallet stored under (owner, address).
func (s *Service) GetWalletByAddress(ctx context.Context, owner, address string) (Snapshot, error) {
	w, err := s.lookup(ctx, owner, ByAddress(address))
	if err != nil {
		return Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// ListWallets returns snapshots of every wallet the owner holds.
func (s *Service) ListWallets(owner string) []Snapshot {
	wallets := s.ledger.Wallets(owner)
	out := make([]Snapshot, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, w.Snapshot())
	}
	return out
}

// SetState moves the wallet to state. Transitions are unconditional.
func (s *Service) SetState(ctx context.Context, key Key, state State) (Snapshot, error) {
	trace := traceID(ctx)
	desc := fmt.Sprintf("set state %s on %s", state, key)
	if !state.Valid() {
		return Snapshot{}, s.fail(ctx, trace, desc, fmt.Errorf("%w: unknown state %d", ErrInvalidArgument, state))
	}
	w, ok := s.ledger.LookupByKey(key.Owner, key.Address)
	if !ok {
		return Snapshot{}, s.fail(ctx, trace, desc, fmt.Errorf("%w: %s", ErrWalletNotFound, key))
	}

	snap := w.setStateNotify(state, s.now(), func(snap Snapshot) {
		s.emit(ctx, event.Info(snap.String(), trace))
	})
	s.logger.InfoContext(ctx, "wallet state changed",
		slog.String("wallet", key.String()),
		slog.String("state", state.String()),
		slog.String("trace_id", trace),
	)
	return snap, nil
}

// Transaction resolves the owner's wallet through id and applies op to it.
// Exactly one event is emitted: INFO with the resulting snapshot on success,
// ERROR with the untouched snapshot and the cause on failure.
func (s *Service) Transaction(ctx context.Context, owner string, id Identifier, op FundsOp) (Snapshot, error) {
	trace := traceID(ctx)

	w, err := s.lookup(ctx, owner, id)
	if err != nil {
		return Snapshot{}, s.fail(ctx, trace, fmt.Sprintf("%s %s for %s (%s)", op.Kind, op.Amount, owner, id), err)
	}

	before, after, err := w.applyNotify(op, s.now(), func(before, after Snapshot, err error) {
		if err != nil {
			s.emit(ctx, event.Error(before.String(), trace, err))
			return
		}
		s.emit(ctx, event.Info(after.String(), trace))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "transaction rejected",
			slog.String("wallet", before.Key().String()),
			slog.String("op", op.Kind.String()),
			slog.String("amount", op.Amount.String()),
			slog.String("trace_id", trace),
			slog.Any("error", err),
		)
		return before, err
	}

	s.logger.InfoContext(ctx, "transaction applied",
		slog.String("wallet", after.Key().String()),
		slog.String("op", op.Kind.String()),
		slog.String("amount", op.Amount.String()),
		slog.String("balance", after.Balance.String()),
		slog.String("trace_id", trace),
	)
	return after, nil
}

// SingleAddressAssets replaces the set of assets limited to one address per
// owner. Only later creations are checked.
func (s *Service) SingleAddressAssets(symbols ...string) {
	s.ledger.SingleAddressAssets(symbols)
	s.logger.Info("single address assets updated", slog.Any("assets", symbols))
}

// IsSingleAddress reports whether symbol is limited to one address per owner.
func (s *Service) IsSingleAddress(symbol string) bool {
	return s.ledger.IsSingleAddress(symbol)
}

// Events subscribes to the current event stream. The subscription ends when
// ctx is done, when it is cancelled, or on Reset.
func (s *Service) Events(ctx context.Context) *event.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bus.Subscribe(ctx)
}

// Reset clears every wallet and the single-address set, completes the
// current event stream and installs a fresh one.
func (s *Service) Reset() {
	s.mu.Lock()
	old := s.bus
	s.bus = event.NewBus(s.busOpts...)
	s.ledger.Reset()
	s.mu.Unlock()

	old.Complete()
	s.logger.Info("wallet ledger reset")
}

// Len returns the number of wallets in the ledger.
func (s *Service) Len() int {
	return s.ledger.Len()
}

func (s *Service) lookup(ctx context.Context, owner string, id Identifier) (*Wallet, error) {
	switch id.kind {
	case byAddress:
		w, ok := s.ledger.LookupByKey(owner, id.address)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, Key{Owner: owner, Address: id.address})
		}
		return w, nil
	case byAsset:
		w, ok, err := s.ledger.LookupByAsset(owner, id.asset)
		if err != nil {
			s.logger.ErrorContext(ctx, "ambiguous wallet lookup",
				slog.String("owner", owner),
				slog.String("asset", id.asset.Symbol),
				slog.Any("error", err),
			)
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: owner %s holds no %s wallet", ErrWalletNotFound, owner, id.asset)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: wallet identifier is not set", ErrInvalidArgument)
	}
}

func (s *Service) defaultAsset() (asset.Asset, error) {
	if s.catalog == nil {
		return asset.Asset{}, asset.ErrCatalogNotInitialized
	}
	return s.catalog.Default()
}

// fail logs err, mirrors it as an ERROR event and returns it.
func (s *Service) fail(ctx context.Context, trace, desc string, err error) error {
	s.logger.WarnContext(ctx, "wallet operation failed",
		slog.String("operation", desc),
		slog.String("trace_id", trace),
		slog.Any("error", err),
	)
	s.emit(ctx, event.Error(desc, trace, err))
	return err
}

func (s *Service) emit(ctx context.Context, e event.Event) {
	s.mu.RLock()
	bus := s.bus
	s.mu.RUnlock()

	for _, o := range s.observers {
		o.ObserveEvent(e)
	}
	if err := bus.Publish(e); err != nil {
		s.logger.ErrorContext(ctx, "event delivery failed",
			slog.String("kind", string(e.Kind)),
			slog.String("trace_id", e.TraceID),
			slog.Any("error", err),
		)
		for _, o := range s.observers {
			o.ObserveDeliveryFailure(err)
		}
	}
}
