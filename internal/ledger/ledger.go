// Package ledger is the only writer of members.gold_holdings. Every mutation
// goes through Adjust inside the transaction of the trade write that caused
// it, so the counter moves in lock-step with trade state.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/goldvault/internal/domain"
	"github.com/goldvault/goldvault/internal/store"
)

type Ledger struct {
	store *store.Store
}

func New(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

// Holdings returns the member's current balance outside any transaction.
func (l *Ledger) Holdings(ctx context.Context, memberID string) (decimal.Decimal, error) {
	m, err := l.store.GetMember(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	return m.GoldHoldings, nil
}

// Adjust applies a signed delta to the member's holdings inside the caller's
// transaction. The write is conditional on the version read here: if another
// transaction bumped it in between, the update matches zero rows and the
// caller gets ErrConflict to retry against the fresh balance.
//
// A negative result is rejected with ErrInsufficientHoldings; clampFloor
// instead floors it at zero and is reserved for the BUY-reversal path, whose
// pre-check already guarantees non-negativity.
func (l *Ledger) Adjust(ctx context.Context, tx *sql.Tx, memberID string, delta decimal.Decimal, clampFloor bool) (decimal.Decimal, error) {
	m, err := l.store.GetMemberTx(ctx, tx, memberID)
	if err != nil {
		return decimal.Zero, err
	}

	next := m.GoldHoldings.Add(delta)
	if next.IsNegative() {
		if !clampFloor {
			return decimal.Zero, fmt.Errorf("%w: have %s, need %s", domain.ErrInsufficientHoldings,
				m.GoldHoldings.String(), delta.Neg().String())
		}
		next = decimal.Zero
	}

	if err := l.writeHoldings(ctx, tx, memberID, next, m.Version); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// SetHoldings overwrites the counter, version-guarded like Adjust. Used only
// by reconciliation repair.
func (l *Ledger) SetHoldings(ctx context.Context, tx *sql.Tx, memberID string, value decimal.Decimal) error {
	m, err := l.store.GetMemberTx(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if value.IsNegative() {
		return fmt.Errorf("%w: refusing to set holdings to %s", domain.ErrInsufficientHoldings, value.String())
	}
	return l.writeHoldings(ctx, tx, memberID, value, m.Version)
}

func (l *Ledger) writeHoldings(ctx context.Context, tx *sql.Tx, memberID string, value decimal.Decimal, expectedVersion int64) error {
	res, err := tx.ExecContext(ctx, `
UPDATE members SET gold_holdings=?, version=version+1, updated_at=?
WHERE id=? AND version=?
`, value.String(), time.Now().UTC().Format(time.RFC3339Nano), memberID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%w: holdings of member %s changed underneath us", domain.ErrConflict, memberID)
	}
	return nil
}

// Recompute derives the member's balance from the completed-trade log:
// +quantity per COMPLETED BUY, -quantity per COMPLETED SELL. Reversed BUYs
// are CANCELLED and so drop out of the sum on their own.
func (l *Ledger) Recompute(ctx context.Context, tx *sql.Tx, memberID string) (decimal.Decimal, error) {
	trades, err := l.store.CompletedTrades(ctx, tx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range trades {
		if t.TradeType == domain.TradeTypeBuy {
			sum = sum.Add(t.Quantity)
		} else {
			sum = sum.Sub(t.Quantity)
		}
	}
	return sum, nil
}
