package store

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS members (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  gold_holdings TEXT NOT NULL DEFAULT '0',
  version INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS gold_rates (
  id TEXT PRIMARY KEY,
  buy_price TEXT NOT NULL,
  sell_price TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0,
  effective_date TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		// schema-level backstop for the single-active-rate invariant
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_gold_rates_active_unique ON gold_rates(is_active) WHERE is_active=1;`,
		`CREATE INDEX IF NOT EXISTS idx_gold_rates_created_at ON gold_rates(created_at DESC);`,
		`
CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  member_id TEXT NOT NULL REFERENCES members(id),
  trade_type TEXT NOT NULL CHECK (trade_type IN ('BUY','SELL')),
  quantity TEXT NOT NULL,
  rate_at_trade TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('PENDING','COMPLETED','CANCELLED')),
  gold_rate_id TEXT NOT NULL REFERENCES gold_rates(id),
  initiated_by TEXT NOT NULL,
  approved_by TEXT,
  notes TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_member_created ON trades(member_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);`,
	}

	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}
