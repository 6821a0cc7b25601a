package ledger

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldvault/goldvault/internal/domain"
	"github.com/goldvault/goldvault/internal/store"
)

func newTestLedger(t *testing.T) (*store.Store, *Ledger) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, New(st)
}

func seedMember(t *testing.T, st *store.Store, id, holdings string) {
	t.Helper()
	now := time.Now().UTC()
	err := st.InsertMember(context.Background(), &domain.Member{
		ID:           id,
		Name:         "Member " + id,
		Email:        id + "@example.com",
		GoldHoldings: decimal.RequireFromString(holdings),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

func adjust(t *testing.T, st *store.Store, l *Ledger, memberID, delta string, clamp bool) (decimal.Decimal, error) {
	t.Helper()
	var out decimal.Decimal
	err := st.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		out, err = l.Adjust(context.Background(), tx, memberID, decimal.RequireFromString(delta), clamp)
		return err
	})
	return out, err
}

func TestAdjust_AddAndSubtract(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "5")

	got, err := adjust(t, st, l, "m1", "10", false)
	if err != nil {
		t.Fatalf("adjust +10: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15, got %s", got)
	}

	got, err = adjust(t, st, l, "m1", "-15", false)
	if err != nil {
		t.Fatalf("adjust -15: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}

	h, err := l.Holdings(context.Background(), "m1")
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if !h.IsZero() {
		t.Fatalf("persisted holdings should be 0, got %s", h)
	}
}

func TestAdjust_RejectsNegativeResult(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "5")

	_, err := adjust(t, st, l, "m1", "-10", false)
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}

	// rejection must not touch the balance
	h, err := l.Holdings(context.Background(), "m1")
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if !h.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected holdings unchanged at 5, got %s", h)
	}
}

func TestAdjust_ClampFloorsAtZero(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "5")

	got, err := adjust(t, st, l, "m1", "-10", true)
	if err != nil {
		t.Fatalf("clamped adjust: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected clamp to 0, got %s", got)
	}
}

func TestAdjust_UnknownMember(t *testing.T) {
	st, l := newTestLedger(t)

	_, err := adjust(t, st, l, "ghost", "1", false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjust_BumpsVersionPerWrite(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "0")

	for i := 0; i < 3; i++ {
		if _, err := adjust(t, st, l, "m1", "1", false); err != nil {
			t.Fatalf("adjust #%d: %v", i, err)
		}
	}
	m, err := st.GetMember(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m.Version != 3 {
		t.Fatalf("expected version 3 after 3 writes, got %d", m.Version)
	}
}

func TestVersionGuard_StaleWriteMatchesNothing(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "5")
	ctx := context.Background()

	// Bump the version after the ledger has read the row but before its
	// guarded write: the conditional update must match nothing.
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := st.GetMemberTx(ctx, tx, "m1"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE members SET version=version+1 WHERE id='m1'`); err != nil {
			return err
		}
		// Re-read sees the bumped version, so sneak the stale write through
		// the same guard the ledger uses: delta applied against version 0.
		res, err := tx.ExecContext(ctx, `UPDATE members SET gold_holdings='99', version=version+1 WHERE id='m1' AND version=0`)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n != 0 {
			t.Fatalf("stale guarded write should match no rows")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	h, err := l.Holdings(ctx, "m1")
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if !h.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("holdings should be untouched, got %s", h)
	}
}

func TestSetHoldings_RejectsNegative(t *testing.T) {
	st, l := newTestLedger(t)
	seedMember(t, st, "m1", "5")

	err := st.WithTx(context.Background(), func(tx *sql.Tx) error {
		return l.SetHoldings(context.Background(), tx, "m1", decimal.NewFromInt(-1))
	})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
}
