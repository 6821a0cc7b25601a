package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldvault/goldvault/internal/domain"
	"github.com/goldvault/goldvault/internal/ledger"
	"github.com/goldvault/goldvault/internal/store"
)

// StateMachine drives trade transitions. Every method runs inside the
// caller's transaction, so the trade write and the holdings adjustment it
// implies commit or roll back as one unit.
//
// Legal transitions: PENDING->COMPLETED, PENDING->CANCELLED, and the single
// reversal COMPLETED(BUY)->CANCELLED. Nothing else.
type StateMachine struct {
	store  *store.Store
	ledger *ledger.Ledger
}

func NewStateMachine(st *store.Store, l *ledger.Ledger) *StateMachine {
	return &StateMachine{store: st, ledger: l}
}

type CreateTradeInput struct {
	MemberID    string           `validate:"required"`
	TradeType   domain.TradeType `validate:"required,oneof=BUY SELL"`
	Quantity    decimal.Decimal
	Notes       string
	InitiatorID string `validate:"required"`
	IsAdmin     bool
}

// CreateTrade prices the trade against the active rate, freezes that rate on
// the row, and completes it immediately where the workflow allows: BUYs are
// admin-only and always complete; a SELL completes for an admin initiator and
// otherwise parks as PENDING awaiting approval.
func (sm *StateMachine) CreateTrade(ctx context.Context, tx *sql.Tx, in CreateTradeInput) (*domain.Trade, error) {
	member, err := sm.store.GetMemberTx(ctx, tx, in.MemberID)
	if err != nil {
		return nil, err
	}
	rate, err := sm.store.ActiveRateTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	if in.TradeType == domain.TradeTypeBuy && !in.IsAdmin {
		return nil, fmt.Errorf("%w: only admins may record buy trades", domain.ErrNotAllowed)
	}
	if in.TradeType == domain.TradeTypeSell && member.GoldHoldings.LessThan(in.Quantity) {
		return nil, fmt.Errorf("%w: have %s, selling %s", domain.ErrInsufficientHoldings,
			member.GoldHoldings.String(), in.Quantity.String())
	}

	status := domain.TradeStatusPending
	var approvedBy *string
	if in.TradeType == domain.TradeTypeBuy || in.IsAdmin {
		status = domain.TradeStatusCompleted
		approvedBy = &in.InitiatorID
	}

	price := rate.PriceFor(in.TradeType)
	now := time.Now().UTC()
	t := &domain.Trade{
		ID:          uuid.NewString(),
		MemberID:    in.MemberID,
		TradeType:   in.TradeType,
		Quantity:    in.Quantity,
		RateAtTrade: price,
		TotalAmount: in.Quantity.Mul(price),
		Status:      status,
		GoldRateID:  rate.ID,
		InitiatedBy: in.InitiatorID,
		ApprovedBy:  approvedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Notes != "" {
		n := in.Notes
		t.Notes = &n
	}

	if err := sm.store.InsertTrade(ctx, tx, t); err != nil {
		return nil, err
	}
	if status == domain.TradeStatusCompleted {
		delta := in.Quantity
		if in.TradeType == domain.TradeTypeSell {
			delta = delta.Neg()
		}
		if _, err := sm.ledger.Adjust(ctx, tx, in.MemberID, delta, false); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// UpdateStatus resolves a PENDING trade: COMPLETED applies its holdings
// effect, CANCELLED leaves holdings untouched (the trade never took effect).
func (sm *StateMachine) UpdateStatus(ctx context.Context, tx *sql.Tx, tradeID string, newStatus domain.TradeStatus, adminID string) (*domain.Trade, error) {
	t, err := sm.store.GetTradeTx(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TradeStatusPending {
		return nil, fmt.Errorf("%w: trade %s is %s", domain.ErrInvalidStateTransition, t.ID, t.Status)
	}
	if newStatus != domain.TradeStatusCompleted && newStatus != domain.TradeStatusCancelled {
		return nil, fmt.Errorf("%w: cannot move PENDING trade to %s", domain.ErrInvalidStateTransition, newStatus)
	}

	ok, err := sm.store.SetTradeStatus(ctx, tx, t.ID, domain.TradeStatusPending, newStatus, &adminID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: trade %s left PENDING concurrently", domain.ErrConflict, t.ID)
	}

	if newStatus == domain.TradeStatusCompleted {
		// Adjust re-reads the balance in this tx: a SELL approved after the
		// member spent the gold elsewhere fails here and rolls everything back.
		delta := t.Quantity
		if t.TradeType == domain.TradeTypeSell {
			delta = delta.Neg()
		}
		if _, err := sm.ledger.Adjust(ctx, tx, t.MemberID, delta, false); err != nil {
			return nil, err
		}
	}
	return sm.store.GetTradeTx(ctx, tx, t.ID)
}

// Cancel reverses a COMPLETED BUY. The pre-check keeps the reversal from
// driving holdings negative when the member has since sold the gold; that
// failure is reported as ErrCannotReverse rather than clamped away.
func (sm *StateMachine) Cancel(ctx context.Context, tx *sql.Tx, tradeID string, adminID string) (*domain.Trade, error) {
	t, err := sm.store.GetTradeTx(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if t.TradeType != domain.TradeTypeBuy || t.Status != domain.TradeStatusCompleted {
		return nil, fmt.Errorf("%w: only COMPLETED BUY trades can be reversed, trade %s is a %s %s",
			domain.ErrInvalidStateTransition, t.ID, t.Status, t.TradeType)
	}

	member, err := sm.store.GetMemberTx(ctx, tx, t.MemberID)
	if err != nil {
		return nil, err
	}
	if member.GoldHoldings.LessThan(t.Quantity) {
		return nil, fmt.Errorf("%w: member holds %s of the %s purchased", domain.ErrCannotReverse,
			member.GoldHoldings.String(), t.Quantity.String())
	}

	ok, err := sm.store.SetTradeStatus(ctx, tx, t.ID, domain.TradeStatusCompleted, domain.TradeStatusCancelled, &adminID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: trade %s left COMPLETED concurrently", domain.ErrConflict, t.ID)
	}

	// Floor at zero as a last line of defence; the pre-check above already
	// guarantees the subtraction stays non-negative.
	if _, err := sm.ledger.Adjust(ctx, tx, t.MemberID, t.Quantity.Neg(), true); err != nil {
		return nil, err
	}
	return sm.store.GetTradeTx(ctx, tx, t.ID)
}
