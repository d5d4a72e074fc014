package simulation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibonsai/exchange-simulator/internal/account"
	"github.com/fibonsai/exchange-simulator/internal/asset"
	"github.com/fibonsai/exchange-simulator/internal/logging"
	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

func newServices(t *testing.T) (*wallet.Service, *account.Service) {
	t.Helper()
	catalog := asset.NewCatalog(asset.DefaultSymbol)
	require.NoError(t, catalog.Init())
	wallets := wallet.NewService(catalog, logging.Discard())
	return wallets, account.NewService(wallets, logging.Discard())
}

func TestRunFundsEveryAccount(t *testing.T) {
	wallets, accounts := newServices(t)
	ctx := context.Background()

	sum, err := Setup{Wallets: wallets, Accounts: accounts, Logger: logging.Discard()}.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccounts, sum.Accounts)
	assert.Equal(t, DefaultAccounts, sum.Funded)
	assert.Empty(t, sum.Failed)

	for _, owner := range []string{"account0", "account9"} {
		w, err := wallets.GetDefaultWallet(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, wallet.StateOnline, w.State)
		assert.True(t, w.Balance.Equal(decimal.NewFromInt(10)), "balance %s", w.Balance)
	}
	assert.Equal(t, DefaultAccounts, wallets.Len())
}

func TestRunCustomCountAndDeposit(t *testing.T) {
	wallets, accounts := newServices(t)
	ctx := context.Background()

	sum, err := Setup{
		Wallets:  wallets,
		Accounts: accounts,
		Logger:   logging.Discard(),
		Count:    3,
		Deposit:  decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
		Prefix:   "sim",
	}.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Funded)

	w, err := wallets.GetDefaultWallet(ctx, "sim2")
	require.NoError(t, err)
	assert.Equal(t, "2.5", w.Balance.String())
}

func TestRunReportsExistingAccounts(t *testing.T) {
	wallets, accounts := newServices(t)
	ctx := context.Background()

	_, _, err := accounts.AddAccount(ctx, "account1")
	require.NoError(t, err)

	sum, err := Setup{Wallets: wallets, Accounts: accounts, Logger: logging.Discard(), Count: 2}.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Funded)
	require.Contains(t, sum.Failed, "account1")
	assert.ErrorIs(t, sum.Failed["account1"], account.ErrAccountExists)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	wallets, accounts := newServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Setup{Wallets: wallets, Accounts: accounts, Logger: logging.Discard()}.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunWithZeroDeposit(t *testing.T) {
	wallets, accounts := newServices(t)
	ctx := context.Background()

	sum, err := Setup{
		Wallets:  wallets,
		Accounts: accounts,
		Logger:   logging.Discard(),
		Count:    2,
		Deposit:  decimal.NewNullDecimal(decimal.Zero),
	}.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Funded)

	w, err := wallets.GetDefaultWallet(ctx, "account1")
	require.NoError(t, err)
	assert.Equal(t, wallet.StateOnline, w.State)
	assert.True(t, w.Balance.IsZero(), "balance %s", w.Balance)
}
