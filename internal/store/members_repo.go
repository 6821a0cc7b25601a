package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goldvault/goldvault/internal/domain"
)

func (s *Store) InsertMember(ctx context.Context, m *domain.Member) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO members (id,name,email,gold_holdings,version,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)
`, m.ID, m.Name, m.Email, m.GoldHoldings.String(), m.Version, fmtTime(m.CreatedAt), fmtTime(m.UpdatedAt))
	return err
}

func (s *Store) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, memberSelect+` WHERE id=?`, memberID))
}

// GetMemberTx reads the member inside the caller's transaction, so a
// holdings check and the write that depends on it see the same row state.
func (s *Store) GetMemberTx(ctx context.Context, tx *sql.Tx, memberID string) (*domain.Member, error) {
	return scanMember(tx.QueryRowContext(ctx, memberSelect+` WHERE id=?`, memberID))
}

func (s *Store) ListMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, memberSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

const memberSelect = `
SELECT id,name,email,gold_holdings,version,created_at,updated_at FROM members`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*domain.Member, error) {
	var m domain.Member
	var holdings, created, updated string
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &holdings, &m.Version, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	if m.GoldHoldings, err = parseDecimal(holdings, "gold_holdings"); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}
