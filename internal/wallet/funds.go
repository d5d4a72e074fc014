package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/fibonsai/exchange-simulator/internal/asset"
)

// OpKind tags a funds operation.
type OpKind uint8

const (
	OpDeposit OpKind = iota + 1
	OpWithdraw
)

func (k OpKind) String() string {
	switch k {
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// FundsOp is a deposit or withdraw request against a single wallet.
type FundsOp struct {
	Kind   OpKind
	Asset  asset.Asset
	Amount decimal.Decimal
}

// Deposit builds a deposit of amount units of a.
func Deposit(a asset.Asset, amount decimal.Decimal) FundsOp {
	return FundsOp{Kind: OpDeposit, Asset: a, Amount: amount}
}

// Withdraw builds a withdraw of amount units of a.
func Withdraw(a asset.Asset, amount decimal.Decimal) FundsOp {
	return FundsOp{Kind: OpWithdraw, Asset: a, Amount: amount}
}
