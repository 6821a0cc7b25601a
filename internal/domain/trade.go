package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusCompleted TradeStatus = "COMPLETED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

func (s TradeStatus) Valid() bool {
	return s == TradeStatusPending || s == TradeStatusCompleted || s == TradeStatusCancelled
}

// Trade is a single buy or sell against the rate that was active when it was
// created. RateAtTrade and GoldRateID are frozen at creation and never
// recomputed, so the row stays meaningful after the rate is superseded.
type Trade struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"member_id"`
	TradeType   TradeType       `json:"trade_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	RateAtTrade decimal.Decimal `json:"rate_at_trade"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      TradeStatus     `json:"status"`
	GoldRateID  string          `json:"gold_rate_id"`
	InitiatedBy string          `json:"initiated_by"`
	ApprovedBy  *string         `json:"approved_by,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
