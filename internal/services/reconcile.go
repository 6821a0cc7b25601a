package services

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Reconciliation compares the holdings counter against the completed-trade
// log. The log is the source of truth; the counter is a read cache that this
// routine audits and, on request, repairs.
type Reconciliation struct {
	MemberID string          `json:"member_id"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
	Drift    decimal.Decimal `json:"drift"`
	Repaired bool            `json:"repaired"`
}

func (r *Reconciliation) InSync() bool {
	return r.Drift.IsZero()
}

func (f *Facade) ReconcileHoldings(ctx context.Context, memberID string, repair bool) (*Reconciliation, error) {
	var rec *Reconciliation
	err := f.withRetry(ctx, "reconcile_holdings", func(tx *sql.Tx) error {
		member, err := f.store.GetMemberTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		computed, err := f.ledger.Recompute(ctx, tx, memberID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{
			MemberID: memberID,
			Stored:   member.GoldHoldings,
			Computed: computed,
			Drift:    member.GoldHoldings.Sub(computed),
		}
		if repair && !rec.InSync() {
			if err := f.ledger.SetHoldings(ctx, tx, memberID, computed); err != nil {
				return err
			}
			rec.Repaired = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.InSync() {
		log.WithFields(logrus.Fields{
			"member":   memberID,
			"stored":   rec.Stored.String(),
			"computed": rec.Computed.String(),
			"drift":    rec.Drift.String(),
			"repaired": rec.Repaired,
		}).Warn("holdings drift detected")
	}
	return rec, nil
}

// ReconcileAll audits every member and returns only the out-of-sync results.
func (f *Facade) ReconcileAll(ctx context.Context, repair bool) ([]Reconciliation, error) {
	members, err := f.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []Reconciliation
	for _, m := range members {
		rec, err := f.ReconcileHoldings(ctx, m.ID, repair)
		if err != nil {
			return nil, err
		}
		if !rec.InSync() {
			drifted = append(drifted, *rec)
		}
	}
	return drifted, nil
}
