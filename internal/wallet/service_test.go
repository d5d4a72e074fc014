package wallet

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibonsai/exchange-simulator/internal/asset"
	"github.com/fibonsai/exchange-simulator/internal/event"
	"github.com/fibonsai/exchange-simulator/internal/logging"
)

type staticCatalog struct {
	def asset.Asset
	err error
}

func (c staticCatalog) Default() (asset.Asset, error) { return c.def, c.err }

type countingObserver struct {
	mu       sync.Mutex
	events   []event.Event
	failures int
}

func (o *countingObserver) ObserveEvent(e event.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *countingObserver) ObserveDeliveryFailure(error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func (o *countingObserver) count(kind event.Kind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithEventOptions(event.WithBufferSize(1024))}, opts...)
	return NewService(staticCatalog{def: usd}, logging.Discard(), opts...)
}

func next(t *testing.T, sub *event.Subscription) event.Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return event.Event{}
}

func assertNoEvent(t *testing.T, sub *event.Subscription) {
	t.Helper()
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event %s", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestServiceAliceScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sub := svc.Events(ctx)

	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	assert.Equal(t, StateOffline, w.State)
	assert.True(t, w.Balance.IsZero())
	assert.NotEmpty(t, w.Address)
	assert.Equal(t, event.KindInfo, next(t, sub).Kind)

	_, err = svc.SetState(ctx, w.Key(), StateOnline)
	require.NoError(t, err)
	assert.Equal(t, event.KindInfo, next(t, sub).Kind)

	w, err = svc.Transaction(ctx, "alice", ByAsset(usd), Deposit(usd, decimal.NewFromInt(10)))
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(10)))
	info := next(t, sub)
	assert.Equal(t, event.KindInfo, info.Kind)
	assert.Equal(t, w.String(), info.Payload)

	_, err = svc.Transaction(ctx, "alice", ByAddress(w.Address), Withdraw(usd, decimal.NewFromInt(100)))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	failed := next(t, sub)
	assert.Equal(t, event.KindError, failed.Kind)
	assert.ErrorIs(t, failed.Err, ErrInsufficientFunds)
	assert.Equal(t, w.String(), failed.Payload, "error event carries the pre-failure snapshot")
	assertNoEvent(t, sub)

	got, err := svc.GetWallet(ctx, "alice", usd)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10)))
}

func TestServiceWithdrawOnlyRejectsDeposit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sub := svc.Events(ctx)

	w, err := svc.CreateWalletWithAddress(ctx, "bob", eur, "bob-eur")
	require.NoError(t, err)
	next(t, sub)

	_, err = svc.SetState(ctx, w.Key(), StateWithdrawOnly)
	require.NoError(t, err)
	next(t, sub)

	_, err = svc.Transaction(ctx, "bob", ByAddress("bob-eur"), Deposit(eur, decimal.NewFromInt(5)))
	require.ErrorIs(t, err, ErrTransactionNotAllowed)
	assert.Contains(t, err.Error(), "WITHDRAW_ONLY")
	e := next(t, sub)
	assert.Equal(t, event.KindError, e.Kind)

	got, err := svc.GetWalletByAddress(ctx, "bob", "bob-eur")
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestServiceBobSingleAddressScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sub := svc.Events(ctx)

	svc.SingleAddressAssets("EUR")

	first, err := svc.CreateWalletWithAddress(ctx, "bob", eur, "addr1")
	require.NoError(t, err)
	assert.Equal(t, event.KindInfo, next(t, sub).Kind)

	_, err = svc.CreateWalletWithAddress(ctx, "bob", eur, "addr2")
	require.ErrorIs(t, err, ErrMultipleAddressesNotAllowed)
	e := next(t, sub)
	assert.Equal(t, event.KindError, e.Kind)
	assert.ErrorIs(t, e.Err, ErrMultipleAddressesNotAllowed)

	_, err = svc.GetWalletByAddress(ctx, "bob", "addr2")
	require.ErrorIs(t, err, ErrWalletNotFound)
	got, err := svc.GetWallet(ctx, "bob", eur)
	require.NoError(t, err)
	assert.Equal(t, first.Key(), got.Key())
}

func TestServiceBlockedStateWinsOverAssetMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sub := svc.Events(ctx)

	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	next(t, sub)

	_, err = svc.Transaction(ctx, "alice", ByAddress(w.Address), Deposit(eur, decimal.NewFromInt(1)))
	require.ErrorIs(t, err, ErrTransactionNotAllowed)
	assert.NotErrorIs(t, err, ErrAssetMismatch)
	assert.Equal(t, event.KindError, next(t, sub).Kind)
}

func TestServiceDepositWithdrawRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "0.01", "12.345", "99.99", "1000000", "0.00000001"}

	svc := newTestService(t)
	ctx := context.Background()
	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	_, err = svc.SetState(ctx, w.Key(), StateOnline)
	require.NoError(t, err)
	start, err := svc.Transaction(ctx, "alice", ByAddress(w.Address), Deposit(usd, decimal.RequireFromString("42.42")))
	require.NoError(t, err)

	for _, amt := range amounts {
		t.Run(amt, func(t *testing.T) {
			x := decimal.RequireFromString(amt)

			mid, err := svc.Transaction(ctx, "alice", ByAddress(w.Address), Deposit(usd, x))
			require.NoError(t, err)
			assert.True(t, mid.Balance.Equal(start.Balance.Add(x)), "after deposit %s", mid.Balance)

			end, err := svc.Transaction(ctx, "alice", ByAsset(usd), Withdraw(usd, x))
			require.NoError(t, err)
			assert.True(t, end.Balance.Equal(start.Balance), "balance %s, want %s", end.Balance, start.Balance)
		})
	}
}

func TestServiceEventsFollowBalanceOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	_, err = svc.SetState(ctx, w.Key(), StateOnline)
	require.NoError(t, err)
	sub := svc.Events(ctx)
	next(t, sub)
	next(t, sub)

	const n = 200
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transaction(ctx, "alice", ByAddress(w.Address), Deposit(usd, decimal.NewFromInt(1)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	prev := decimal.Zero
	for range n {
		var snap struct {
			Amount decimal.Decimal `json:"amount"`
		}
		require.NoError(t, json.Unmarshal([]byte(next(t, sub).Payload), &snap))
		assert.True(t, snap.Amount.Equal(prev.Add(decimal.NewFromInt(1))), "got %s after %s", snap.Amount, prev)
		prev = snap.Amount
	}
}

func TestServiceCreateFailuresEmitErrors(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, WithObserver(obs))
	ctx := context.Background()

	_, err := svc.CreateWalletWithAddress(ctx, "alice", usd, "a1")
	require.NoError(t, err)
	_, err = svc.CreateWalletWithAddress(ctx, "alice", eur, "a1")
	require.ErrorIs(t, err, ErrDuplicateKey)

	svc.SingleAddressAssets("USD")
	_, err = svc.CreateWallet(ctx, "alice", usd)
	require.ErrorIs(t, err, ErrMultipleAddressesNotAllowed)

	_, err = svc.CreateWallet(ctx, "", usd)
	require.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 1, obs.count(event.KindInfo))
	assert.Equal(t, 3, obs.count(event.KindError))
	assert.Equal(t, 1, svc.Len())
}

func TestServiceDefaultWallet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetDefaultWallet(ctx, "carol")
	require.ErrorIs(t, err, ErrWalletNotFound)

	created, err := svc.CreateDefaultWallet(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Asset.Symbol)

	got, err := svc.GetDefaultWallet(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, created.Key(), got.Key())
}

func TestServiceDefaultWalletWithoutCatalog(t *testing.T) {
	obs := &countingObserver{}
	svc := NewService(staticCatalog{err: asset.ErrCatalogNotInitialized}, logging.Discard(), WithObserver(obs))

	_, err := svc.CreateDefaultWallet(context.Background(), "carol")
	require.ErrorIs(t, err, asset.ErrCatalogNotInitialized)
	assert.Equal(t, 1, obs.count(event.KindError))
}

func TestServiceLookupsNeverCreate(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, WithObserver(obs))
	ctx := context.Background()

	_, err := svc.GetWallet(ctx, "ghost", usd)
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = svc.GetWalletByAddress(ctx, "ghost", "nowhere")
	require.ErrorIs(t, err, ErrWalletNotFound)

	assert.Zero(t, svc.Len())
	assert.Empty(t, obs.events)
}

func TestServiceTransactionOnMissingWallet(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, WithObserver(obs))

	_, err := svc.Transaction(context.Background(), "ghost", ByAsset(usd), Deposit(usd, decimal.NewFromInt(1)))
	require.ErrorIs(t, err, ErrWalletNotFound)
	assert.Equal(t, 1, obs.count(event.KindError))
	assert.Zero(t, svc.Len())

	_, err = svc.Transaction(context.Background(), "ghost", Identifier{}, Deposit(usd, decimal.NewFromInt(1)))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceAmbiguousLookup(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, WithObserver(obs))
	ctx := context.Background()

	_, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	_, err = svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	svc.SingleAddressAssets("USD")

	_, err = svc.GetWallet(ctx, "alice", usd)
	require.ErrorIs(t, err, ErrAmbiguousWallet)
	_, err = svc.Transaction(ctx, "alice", ByAsset(usd), Deposit(usd, decimal.NewFromInt(1)))
	require.ErrorIs(t, err, ErrAmbiguousWallet)

	assert.Equal(t, 2, obs.count(event.KindError))
}

func TestServiceSetState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)

	// transitions are unconditional, including back to the same state
	for _, s := range append(States(), StateOffline, StateOffline) {
		got, err := svc.SetState(ctx, w.Key(), s)
		require.NoError(t, err)
		assert.Equal(t, s, got.State)
	}

	_, err = svc.SetState(ctx, Key{Owner: "alice", Address: "missing"}, StateOnline)
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = svc.SetState(ctx, w.Key(), State(0))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceTraceIDFromContext(t *testing.T) {
	svc := newTestService(t)
	sub := svc.Events(context.Background())

	ctx := WithTraceID(context.Background(), "trace-123")
	_, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", next(t, sub).TraceID)

	_, err = svc.CreateWallet(context.Background(), "bob", usd)
	require.NoError(t, err)
	generated := next(t, sub).TraceID
	assert.NotEmpty(t, generated)
	assert.NotEqual(t, "trace-123", generated)
}

func TestServiceConcurrentWithdrawsEmitOneEventEach(t *testing.T) {
	obs := &countingObserver{}
	svc := newTestService(t, WithObserver(obs))
	ctx := context.Background()

	w, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	_, err = svc.SetState(ctx, w.Key(), StateOnline)
	require.NoError(t, err)
	_, err = svc.Transaction(ctx, "alice", ByAddress(w.Address), Deposit(usd, decimal.NewFromInt(100)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 150 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transaction(ctx, "alice", ByAsset(usd), Withdraw(usd, decimal.NewFromInt(1)))
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetWallet(ctx, "alice", usd)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
	assert.Equal(t, 103, obs.count(event.KindInfo))
	assert.Equal(t, 50, obs.count(event.KindError))
}

func TestServiceResetCompletesStream(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	old := svc.Events(ctx)

	_, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	next(t, old)

	svc.SingleAddressAssets("USD")
	svc.Reset()

	select {
	case _, ok := <-old.Events():
		assert.False(t, ok, "old stream must be completed")
	case <-time.After(time.Second):
		t.Fatal("old subscription was not closed")
	}
	assert.Zero(t, svc.Len())
	assert.False(t, svc.IsSingleAddress("USD"))

	fresh := svc.Events(ctx)
	_, err = svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	assert.Equal(t, event.KindInfo, next(t, fresh).Kind)
}

func TestServiceDeliveryFailureIsNotFatal(t *testing.T) {
	obs := &countingObserver{}
	svc := NewService(staticCatalog{def: usd}, logging.Discard(),
		WithObserver(obs),
		WithEventOptions(event.WithBufferSize(1), event.WithDeliveryTimeout(10*time.Millisecond)),
	)
	ctx := context.Background()
	_ = svc.Events(ctx) // never drained

	_, err := svc.CreateWallet(ctx, "alice", usd)
	require.NoError(t, err)
	_, err = svc.CreateWallet(ctx, "bob", usd)
	require.NoError(t, err, "a stalled subscriber must not fail the operation")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.failures)
}

func TestServiceListWallets(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, a := range []asset.Asset{usd, btc, eur} {
		_, err := svc.CreateWallet(ctx, "alice", a)
		require.NoError(t, err)
	}

	var symbols []string
	for _, w := range svc.ListWallets("alice") {
		symbols = append(symbols, w.Asset.Symbol)
	}
	assert.Equal(t, []string{"BTC", "EUR", "USD"}, symbols)
}
