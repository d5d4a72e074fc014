// Package simulation seeds a wallet ledger with funded accounts.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

const (
	DefaultAccounts    = 10
	DefaultConcurrency = 4
)

// DefaultDeposit is credited to every simulated account.
var DefaultDeposit = decimal.NewFromInt(10)

// Wallets is the part of the wallet service the setup drives.
type Wallets interface {
	GetDefaultWallet(ctx context.Context, owner string) (wallet.Snapshot, error)
	SetState(ctx context.Context, key wallet.Key, state wallet.State) (wallet.Snapshot, error)
	Transaction(ctx context.Context, owner string, id wallet.Identifier, op wallet.FundsOp) (wallet.Snapshot, error)
}

// Accounts registers accounts.
type Accounts interface {
	AddAccount(ctx context.Context, owner string) (string, wallet.Snapshot, error)
}

// Setup creates Count accounts named account0..accountN-1, puts each
// default wallet ONLINE and deposits Deposit into it. An unset Deposit
// means DefaultDeposit; a set zero is honoured.
type Setup struct {
	Wallets     Wallets
	Accounts    Accounts
	Logger      *slog.Logger
	Count       int
	Deposit     decimal.NullDecimal
	Prefix      string
	Concurrency int
}

// Summary reports what Run did.
type Summary struct {
	Accounts int
	Funded   int
	Failed   map[string]error
}

// Run seeds the ledger. Individual account failures are collected in the
// summary; the returned error is only set when ctx ends early.
func (s Setup) Run(ctx context.Context) (Summary, error) {
	s.defaults()

	var (
		mu  sync.Mutex
		sum = Summary{Failed: make(map[string]error)}
	)
	record := func(owner string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			sum.Failed[owner] = err
			return
		}
		sum.Funded++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i := range s.Count {
		owner := fmt.Sprintf("%s%d", s.Prefix, i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := s.seed(gctx, owner)
			if err != nil {
				s.Logger.WarnContext(gctx, "simulated account not funded", slog.String("owner", owner), slog.Any("error", err))
			}
			record(owner, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	sum.Accounts = s.Count
	s.Logger.InfoContext(ctx, "simulated setup executed",
		slog.Int("accounts", sum.Accounts),
		slog.Int("funded", sum.Funded),
		slog.Int("failed", len(sum.Failed)),
	)
	return sum, nil
}

func (s Setup) seed(ctx context.Context, owner string) error {
	acc, _, err := s.Accounts.AddAccount(ctx, owner)
	if err != nil {
		return err
	}
	w, err := s.Wallets.GetDefaultWallet(ctx, acc)
	if err != nil {
		return err
	}
	if _, err := s.Wallets.SetState(ctx, w.Key(), wallet.StateOnline); err != nil {
		return err
	}
	_, err = s.Wallets.Transaction(ctx, acc, wallet.ByAddress(w.Address), wallet.Deposit(w.Asset, s.Deposit.Decimal))
	return err
}

func (s *Setup) defaults() {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Count <= 0 {
		s.Count = DefaultAccounts
	}
	if !s.Deposit.Valid {
		s.Deposit = decimal.NewNullDecimal(DefaultDeposit)
	}
	if s.Prefix == "" {
		s.Prefix = "account"
	}
	if s.Concurrency <= 0 {
		s.Concurrency = DefaultConcurrency
	}
}
