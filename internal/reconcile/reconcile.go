// Package reconcile audits the wallet ledger on Postgres deployments: every
// wallet balance must equal the sum of its ledger entries, and no balance may
// be negative.
package reconcile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	sqlSelectDrift = `
		select w.user_id, w.balance_points, coalesce(sum(e.amount_points),0) as ledger_sum
		from wallets w
		left join ledger_entries e on e.owner_id = w.user_id
		group by w.user_id, w.balance_points
		having w.balance_points <> coalesce(sum(e.amount_points),0)
	`

	sqlCountNegativeBalances = `
		select count(*) from wallets where balance_points < 0
	`
)

// Drift reports one wallet whose balance disagrees with its ledger.
type Drift struct {
	UserID        string
	BalancePoints int64
	LedgerSum     int64
}

// Querier is the slice of pgxpool.Pool the Checker queries through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Checker runs reconciliation queries over a pgx pool.
type Checker struct {
	database Querier
	logger   *zap.Logger
}

// New wires a Checker.
func New(database Querier, logger *zap.Logger) *Checker {
	return &Checker{database: database, logger: logger}
}

// Check returns every wallet whose balance drifted from its ledger sum and
// logs the count of negative balances, which the schema check constraint
// should make impossible.
func (checker *Checker) Check(ctx context.Context) ([]Drift, error) {
	rows, err := checker.database.Query(ctx, sqlSelectDrift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []Drift
	for rows.Next() {
		var drift Drift
		if err := rows.Scan(&drift.UserID, &drift.BalancePoints, &drift.LedgerSum); err != nil {
			return nil, err
		}
		drifts = append(drifts, drift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var negativeCount int64
	if err := checker.database.QueryRow(ctx, sqlCountNegativeBalances).Scan(&negativeCount); err != nil {
		return nil, err
	}
	if negativeCount > 0 {
		checker.logger.Error("negative wallet balances found", zap.Int64("count", negativeCount))
	}
	return drifts, nil
}

// Run checks on the interval until the context is cancelled, logging any
// drifted wallets.
func (checker *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drifts, err := checker.Check(ctx)
			if err != nil {
				checker.logger.Error("reconciliation check failed", zap.Error(err))
				continue
			}
			for _, drift := range drifts {
				checker.logger.Error("wallet balance drift",
					zap.String("user_id", drift.UserID),
					zap.Int64("balance_points", drift.BalancePoints),
					zap.Int64("ledger_sum", drift.LedgerSum),
				)
			}
		}
	}
}
