package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goldvault/goldvault/internal/domain"
)

const rateSelect = `
SELECT id,buy_price,sell_price,is_active,effective_date,created_by,created_at FROM gold_rates`

// ActiveRate returns the single active rate version, or ErrNoActiveRate.
func (s *Store) ActiveRate(ctx context.Context) (*domain.GoldRate, error) {
	return scanRate(s.db.QueryRowContext(ctx, rateSelect+` WHERE is_active=1 ORDER BY created_at DESC LIMIT 1`))
}

func (s *Store) ActiveRateTx(ctx context.Context, tx *sql.Tx) (*domain.GoldRate, error) {
	return scanRate(tx.QueryRowContext(ctx, rateSelect+` WHERE is_active=1 ORDER BY created_at DESC LIMIT 1`))
}

func (s *Store) GetRateTx(ctx context.Context, tx *sql.Tx, rateID string) (*domain.GoldRate, error) {
	r, err := scanRate(tx.QueryRowContext(ctx, rateSelect+` WHERE id=?`, rateID))
	if errors.Is(err, domain.ErrNoActiveRate) {
		return nil, domain.ErrNotFound
	}
	return r, err
}

// DeactivateRates clears is_active on every version. Paired with InsertRate
// inside one transaction this supersedes the old version atomically: the worst
// a crash between the two can leave behind is zero active rates, never two.
func (s *Store) DeactivateRates(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE gold_rates SET is_active=0 WHERE is_active=1`)
	return err
}

func (s *Store) InsertRate(ctx context.Context, tx *sql.Tx, r *domain.GoldRate) error {
	active := 0
	if r.IsActive {
		active = 1
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO gold_rates (id,buy_price,sell_price,is_active,effective_date,created_by,created_at)
VALUES (?,?,?,?,?,?,?)
`, r.ID, r.BuyPrice.String(), r.SellPrice.String(), active, fmtTime(r.EffectiveDate), r.CreatedBy, fmtTime(r.CreatedAt))
	return err
}

func (s *Store) ListRates(ctx context.Context) ([]domain.GoldRate, error) {
	rows, err := s.db.QueryContext(ctx, rateSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GoldRate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountActiveRates exists for invariant auditing; the engine itself never
// needs more than ActiveRate.
func (s *Store) CountActiveRates(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gold_rates WHERE is_active=1`).Scan(&n)
	return n, err
}

func scanRate(row rowScanner) (*domain.GoldRate, error) {
	var r domain.GoldRate
	var buy, sell, effective, created string
	var active int
	if err := row.Scan(&r.ID, &buy, &sell, &active, &effective, &r.CreatedBy, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoActiveRate
		}
		return nil, err
	}
	var err error
	if r.BuyPrice, err = parseDecimal(buy, "buy_price"); err != nil {
		return nil, err
	}
	if r.SellPrice, err = parseDecimal(sell, "sell_price"); err != nil {
		return nil, err
	}
	r.IsActive = active == 1
	r.EffectiveDate = parseTime(effective)
	r.CreatedAt = parseTime(created)
	return &r, nil
}
