// Package sweeper drives the periodic settlement pass: closing expired
// auctions and opening scheduled listings whose start time has arrived.
package sweeper

import (
	"context"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"go.uber.org/zap"
)

// Settler is the slice of the auction service the sweeper drives.
type Settler interface {
	SettleExpiredAuctions(ctx context.Context) (auction.SettlementReport, error)
	OpenScheduledListings(ctx context.Context) (int, error)
}

// Sweeper runs the settlement pass on a fixed interval.
type Sweeper struct {
	settler  Settler
	interval time.Duration
	logger   *zap.Logger
}

// New wires a Sweeper.
func New(settler Settler, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{settler: settler, interval: interval, logger: logger}
}

// Run sweeps immediately, then on every tick until the context is cancelled.
// A failed pass is logged and retried on the next tick.
func (sweeper *Sweeper) Run(ctx context.Context) {
	sweeper.sweep(ctx)
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweeper.sweep(ctx)
		}
	}
}

func (sweeper *Sweeper) sweep(ctx context.Context) {
	opened, err := sweeper.settler.OpenScheduledListings(ctx)
	if err != nil {
		sweeper.logger.Error("open scheduled listings failed", zap.Error(err))
	} else if opened > 0 {
		sweeper.logger.Info("scheduled listings opened", zap.Int("opened", opened))
	}

	report, err := sweeper.settler.SettleExpiredAuctions(ctx)
	if err != nil {
		sweeper.logger.Error("settlement pass failed", zap.Error(err))
		return
	}
	if report.Closed > 0 || report.Skipped > 0 {
		sweeper.logger.Info("settlement pass finished",
			zap.Int("closed", report.Closed),
			zap.Int("underfunded", report.Underfunded),
			zap.Int("skipped", report.Skipped),
		)
	}
}
