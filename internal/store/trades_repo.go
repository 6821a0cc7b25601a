package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goldvault/goldvault/internal/domain"
)

const tradeSelect = `
SELECT id,member_id,trade_type,quantity,rate_at_trade,total_amount,status,gold_rate_id,
       initiated_by,approved_by,notes,created_at,updated_at FROM trades`

func (s *Store) InsertTrade(ctx context.Context, tx *sql.Tx, t *domain.Trade) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO trades (id,member_id,trade_type,quantity,rate_at_trade,total_amount,status,
                    gold_rate_id,initiated_by,approved_by,notes,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
`, t.ID, t.MemberID, string(t.TradeType), t.Quantity.String(), t.RateAtTrade.String(),
		t.TotalAmount.String(), string(t.Status), t.GoldRateID, t.InitiatedBy,
		t.ApprovedBy, t.Notes, fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	return err
}

func (s *Store) GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	return scanTrade(s.db.QueryRowContext(ctx, tradeSelect+` WHERE id=?`, tradeID))
}

func (s *Store) GetTradeTx(ctx context.Context, tx *sql.Tx, tradeID string) (*domain.Trade, error) {
	return scanTrade(tx.QueryRowContext(ctx, tradeSelect+` WHERE id=?`, tradeID))
}

// SetTradeStatus moves a trade out of expectedStatus in one guarded update.
// RowsAffected==0 means another writer got there first (or the trade is gone);
// the caller maps that to a conflict.
func (s *Store) SetTradeStatus(ctx context.Context, tx *sql.Tx, tradeID string, expectedStatus, newStatus domain.TradeStatus, approvedBy *string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
UPDATE trades SET status=?, approved_by=COALESCE(?, approved_by), updated_at=?
WHERE id=? AND status=?
`, string(newStatus), approvedBy, fmtTime(now), tradeID, string(expectedStatus))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) ListMemberTrades(ctx context.Context, memberID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, tradeSelect+` WHERE member_id=? ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CompletedTrades returns the member's COMPLETED trades inside the caller's
// transaction; the reconciliation sum is computed over these.
func (s *Store) CompletedTrades(ctx context.Context, tx *sql.Tx, memberID string) ([]domain.Trade, error) {
	rows, err := tx.QueryContext(ctx, tradeSelect+` WHERE member_id=? AND status=? ORDER BY created_at`, memberID, string(domain.TradeStatusCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var typ, qty, rate, total, status, created, updated string
	var approvedBy, notes sql.NullString
	if err := row.Scan(&t.ID, &t.MemberID, &typ, &qty, &rate, &total, &status, &t.GoldRateID,
		&t.InitiatedBy, &approvedBy, &notes, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.TradeType = domain.TradeType(typ)
	t.Status = domain.TradeStatus(status)
	var err error
	if t.Quantity, err = parseDecimal(qty, "quantity"); err != nil {
		return nil, err
	}
	if t.RateAtTrade, err = parseDecimal(rate, "rate_at_trade"); err != nil {
		return nil, err
	}
	if t.TotalAmount, err = parseDecimal(total, "total_amount"); err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		t.ApprovedBy = &approvedBy.String
	}
	if notes.Valid {
		t.Notes = &notes.String
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}
