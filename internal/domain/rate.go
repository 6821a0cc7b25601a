package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoldRate is one published price version (per gram). Versions are never
// updated or deleted; creating a new one deactivates all others in the same
// transaction, so at most one row is active at any time.
type GoldRate struct {
	ID            string          `json:"id"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	IsActive      bool            `json:"is_active"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PriceFor returns the per-gram price this rate charges for the given side.
func (r *GoldRate) PriceFor(t TradeType) decimal.Decimal {
	if t == TradeTypeBuy {
		return r.BuyPrice
	}
	return r.SellPrice
}
