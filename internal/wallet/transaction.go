package wallet

import (
	"fmt"
	"time"
)

// apply runs op against the wallet. The wallet mutex is held for the whole
// check-and-mutate sequence so concurrent withdraws cannot overdraw it. On
// failure the wallet is left untouched and before == after.
func (w *Wallet) apply(op FundsOp, now time.Time) (before, after Snapshot, err error) {
	return w.applyNotify(op, now, nil)
}

// applyNotify is apply with notify called before the wallet mutex is
// released, so notifications for one wallet follow the order of its changes.
func (w *Wallet) applyNotify(op FundsOp, now time.Time, notify func(before, after Snapshot, err error)) (before, after Snapshot, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	before = w.snapshotLocked()
	if err := w.checkLocked(op); err != nil {
		if notify != nil {
			notify(before, before, err)
		}
		return before, before, err
	}

	switch op.Kind {
	case OpDeposit:
		w.balance = w.balance.Add(op.Amount)
	case OpWithdraw:
		w.balance = w.balance.Sub(op.Amount)
	}
	w.updatedAt = now
	after = w.snapshotLocked()
	if notify != nil {
		notify(before, after, nil)
	}
	return before, after, nil
}

func (w *Wallet) checkLocked(op FundsOp) error {
	if op.Kind != OpDeposit && op.Kind != OpWithdraw {
		return fmt.Errorf("%w: unknown funds operation %d", ErrInvalidArgument, op.Kind)
	}
	if op.Amount.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidAmount, op.Amount)
	}
	if !w.state.Permits(op.Kind) {
		return fmt.Errorf("%w: %s is not possible, wallet state is %s", ErrTransactionNotAllowed, op.Kind, w.state)
	}
	if !w.asset.Equal(op.Asset) {
		return fmt.Errorf("%w: wallet holds %s, %s uses %s", ErrAssetMismatch, w.asset, op.Kind, op.Asset)
	}
	if op.Kind == OpWithdraw && op.Amount.GreaterThan(w.balance) {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientFunds, op.Amount, w.balance)
	}
	return nil
}
