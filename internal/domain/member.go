package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is the ledger's view of a member: identity plus the gold holdings
// counter. The counter is a cache of the completed-trade log and is only ever
// written through the holdings ledger; Version guards that write.
type Member struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	GoldHoldings decimal.Decimal `json:"gold_holdings"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
