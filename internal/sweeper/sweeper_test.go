package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"go.uber.org/zap"
)

type fakeSettler struct {
	mu          sync.Mutex
	settleCalls int
	openCalls   int
	settleErr   error
}

func (settler *fakeSettler) SettleExpiredAuctions(ctx context.Context) (auction.SettlementReport, error) {
	settler.mu.Lock()
	defer settler.mu.Unlock()
	settler.settleCalls++
	if settler.settleErr != nil {
		return auction.SettlementReport{}, settler.settleErr
	}
	return auction.SettlementReport{Closed: 1}, nil
}

func (settler *fakeSettler) OpenScheduledListings(ctx context.Context) (int, error) {
	settler.mu.Lock()
	defer settler.mu.Unlock()
	settler.openCalls++
	return 0, nil
}

func (settler *fakeSettler) calls() (int, int) {
	settler.mu.Lock()
	defer settler.mu.Unlock()
	return settler.settleCalls, settler.openCalls
}

func TestSweeperRunsImmediatelyAndOnTicks(test *testing.T) {
	test.Parallel()
	settler := &fakeSettler{}
	sweeper := New(settler, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		settleCalls, openCalls := settler.calls()
		if settleCalls >= 2 && openCalls >= 2 {
			break
		}
		select {
		case <-deadline:
			test.Fatalf("expected repeated sweeps, got settle=%d open=%d", settleCalls, openCalls)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestSweeperSurvivesSettlementErrors(test *testing.T) {
	test.Parallel()
	settler := &fakeSettler{settleErr: errors.New("settle down")}
	sweeper := New(settler, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		settleCalls, _ := settler.calls()
		if settleCalls >= 3 {
			break
		}
		select {
		case <-deadline:
			test.Fatalf("expected sweeps to continue past errors, got %d", settleCalls)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
