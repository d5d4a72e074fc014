package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

// ErrAccountExists is returned when the owner already holds a default wallet.
var ErrAccountExists = errors.New("account already exists")

// Wallets is the part of the wallet service accounts rely on.
type Wallets interface {
	CreateDefaultWallet(ctx context.Context, owner string) (wallet.Snapshot, error)
	GetDefaultWallet(ctx context.Context, owner string) (wallet.Snapshot, error)
}

// Service registers accounts. An account is an owner holding a wallet for the default asset.
type Service struct {
	wallets Wallets
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewService constructs an account service.
func NewService(wallets Wallets, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{wallets: wallets, logger: logger}
}

// AddAccount creates the owner's default wallet and returns the owner.
func (s *Service) AddAccount(ctx context.Context, owner string) (string, wallet.Snapshot, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", wallet.Snapshot{}, fmt.Errorf("%w: owner is required", wallet.ErrInvalidArgument)
	}
	s.logger.InfoContext(ctx, "add account", slog.String("owner", owner))

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.wallets.GetDefaultWallet(ctx, owner)
	switch {
	case err == nil:
		err = fmt.Errorf("%w: %w: %s holds wallet %s", ErrAccountExists, wallet.ErrDuplicateKey, owner, existing.Address)
		s.logger.ErrorContext(ctx, "add account failed", slog.String("owner", owner), slog.Any("error", err))
		return "", wallet.Snapshot{}, err
	case !errors.Is(err, wallet.ErrWalletNotFound):
		s.logger.ErrorContext(ctx, "add account failed", slog.String("owner", owner), slog.Any("error", err))
		return "", wallet.Snapshot{}, err
	}

	w, err := s.wallets.CreateDefaultWallet(ctx, owner)
	if err != nil {
		s.logger.ErrorContext(ctx, "add account failed", slog.String("owner", owner), slog.Any("error", err))
		return "", wallet.Snapshot{}, err
	}
	return owner, w, nil
}
