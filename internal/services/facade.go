package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/goldvault/goldvault/internal/domain"
	"github.com/goldvault/goldvault/internal/ledger"
	"github.com/goldvault/goldvault/internal/store"
)

var log = logrus.WithField("component", "trade_ledger")

// maxConflictRetries bounds how often a request is replayed after losing an
// optimistic race before ErrConflict reaches the caller.
const maxConflictRetries = 3

// Facade is the engine's public surface: one serializable transaction per
// call, bounded retry on conflicts, validation at the boundary. The excluded
// HTTP layer maps its results onto status codes.
type Facade struct {
	store    *store.Store
	ledger   *ledger.Ledger
	sm       *StateMachine
	validate *validator.Validate
}

func NewFacade(st *store.Store) *Facade {
	l := ledger.New(st)
	return &Facade{
		store:    st,
		ledger:   l,
		sm:       NewStateMachine(st, l),
		validate: validator.New(),
	}
}

func (f *Facade) CreateTrade(ctx context.Context, in CreateTradeInput) (*domain.Trade, error) {
	if err := f.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive, got %s", domain.ErrInvalidInput, in.Quantity.String())
	}

	var out *domain.Trade
	err := f.withRetry(ctx, "create_trade", func(tx *sql.Tx) error {
		var err error
		out, err = f.sm.CreateTrade(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"trade_id": out.ID,
		"member":   out.MemberID,
		"type":     out.TradeType,
		"quantity": out.Quantity.String(),
		"status":   out.Status,
	}).Info("trade created")
	return out, nil
}

func (f *Facade) UpdateTradeStatus(ctx context.Context, tradeID string, newStatus domain.TradeStatus, adminID string) (*domain.Trade, error) {
	if tradeID == "" || adminID == "" {
		return nil, fmt.Errorf("%w: trade id and admin id are required", domain.ErrInvalidInput)
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, string(newStatus))
	}

	var out *domain.Trade
	err := f.withRetry(ctx, "update_trade_status", func(tx *sql.Tx) error {
		var err error
		out, err = f.sm.UpdateStatus(ctx, tx, tradeID, newStatus, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"trade_id": out.ID,
		"status":   out.Status,
		"admin":    adminID,
	}).Info("trade status updated")
	return out, nil
}

func (f *Facade) CancelTrade(ctx context.Context, tradeID string, adminID string) (*domain.Trade, error) {
	if tradeID == "" || adminID == "" {
		return nil, fmt.Errorf("%w: trade id and admin id are required", domain.ErrInvalidInput)
	}

	var out *domain.Trade
	err := f.withRetry(ctx, "cancel_trade", func(tx *sql.Tx) error {
		var err error
		out, err = f.sm.Cancel(ctx, tx, tradeID, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"trade_id": out.ID,
		"member":   out.MemberID,
		"admin":    adminID,
	}).Info("buy trade reversed")
	return out, nil
}

type CreateRateInput struct {
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	EffectiveDate *time.Time
	AdminID       string `validate:"required"`
}

// CreateGoldRateVersion supersedes the current rate: deactivate-all plus
// insert-active inside one transaction, with a partial unique index in the
// schema making a second active row impossible outright.
func (f *Facade) CreateGoldRateVersion(ctx context.Context, in CreateRateInput) (*domain.GoldRate, error) {
	if err := f.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !in.BuyPrice.IsPositive() || !in.SellPrice.IsPositive() {
		return nil, fmt.Errorf("%w: buy and sell prices must be positive", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	effective := now
	if in.EffectiveDate != nil {
		effective = in.EffectiveDate.UTC()
	}
	rate := &domain.GoldRate{
		ID:            uuid.NewString(),
		BuyPrice:      in.BuyPrice,
		SellPrice:     in.SellPrice,
		IsActive:      true,
		EffectiveDate: effective,
		CreatedBy:     in.AdminID,
		CreatedAt:     now,
	}

	err := f.withRetry(ctx, "create_gold_rate", func(tx *sql.Tx) error {
		if err := f.store.DeactivateRates(ctx, tx); err != nil {
			return err
		}
		return f.store.InsertRate(ctx, tx, rate)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"rate_id": rate.ID,
		"buy":     rate.BuyPrice.String(),
		"sell":    rate.SellPrice.String(),
		"admin":   in.AdminID,
	}).Info("gold rate version published")
	return rate, nil
}

func (f *Facade) GetActiveGoldRate(ctx context.Context) (*domain.GoldRate, error) {
	return f.store.ActiveRate(ctx)
}

func (f *Facade) ListRateHistory(ctx context.Context) ([]domain.GoldRate, error) {
	return f.store.ListRates(ctx)
}

func (f *Facade) GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	return f.store.GetTrade(ctx, tradeID)
}

func (f *Facade) ListMemberTrades(ctx context.Context, memberID string) ([]domain.Trade, error) {
	if _, err := f.store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return f.store.ListMemberTrades(ctx, memberID)
}

func (f *Facade) Holdings(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return f.ledger.Holdings(ctx, memberID)
}

// withRetry replays fn when it loses to a concurrent writer. Only conflict
// outcomes are retried; business rejections surface immediately.
func (f *Facade) withRetry(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = f.store.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt >= maxConflictRetries {
			return err
		}
		log.WithFields(logrus.Fields{"op": op, "attempt": attempt + 1}).Warn("write conflict, retrying")
	}
}
