package auction

import (
	"context"
	"fmt"
)

// SettlementOutcome names what happened to one listing during a sweep.
type SettlementOutcome string

const (
	OutcomeWinnerCharged     SettlementOutcome = "winner_charged"
	OutcomeNoBids            SettlementOutcome = "no_bids"
	OutcomeWinnerUnderfunded SettlementOutcome = "winner_underfunded"
	OutcomeSkipped           SettlementOutcome = "skipped"
)

// SettlementReport summarizes one sweep pass.
type SettlementReport struct {
	Closed      int
	Underfunded int
	Skipped     int
}

// SettleExpiredAuctions closes every ACTIVE listing whose end time has passed.
// Each listing settles independently and exactly once: the status predicate
// excludes listings already ENDED, and a listing whose row lock is contended
// (a bid landing at the close instant) is skipped rather than waited on — the
// next sweep picks it up. A per-listing failure is logged and does not abort
// the rest of the batch.
func (service *Service) SettleExpiredAuctions(ctx context.Context) (SettlementReport, error) {
	report := SettlementReport{}
	nowUnixUTC := service.nowFn()
	listingIDs, err := service.store.ListExpiredActiveListingIDs(ctx, nowUnixUTC, settlementBatchLimit)
	if err != nil {
		return report, err
	}
	for _, listingID := range listingIDs {
		outcome, settleErr := service.settleListing(ctx, listingID, nowUnixUTC, false)
		if settleErr != nil {
			service.logOperation(ctx, OperationLog{
				Operation: operationSettle,
				ListingID: listingID,
				Error:     settleErr,
			})
			continue
		}
		switch outcome {
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeWinnerUnderfunded:
			report.Closed++
			report.Underfunded++
		default:
			report.Closed++
		}
	}
	return report, nil
}

// ForceCloseListing ends an ACTIVE listing ahead of its end time (admin
// closure). It settles through the same path as the sweeper, so the winner is
// charged and participants notified exactly as on natural expiry.
func (service *Service) ForceCloseListing(ctx context.Context, listingID ListingID) (SettlementOutcome, error) {
	outcome, operationError := service.settleListing(ctx, listingID, service.nowFn(), true)
	service.logOperation(ctx, OperationLog{
		Operation: operationForceClose,
		ListingID: listingID,
		Outcome:   string(outcome),
		Error:     operationError,
	})
	if operationError != nil {
		return outcome, operationError
	}
	if outcome == OutcomeSkipped {
		return outcome, fmt.Errorf("%w: listing is not open for closure", ErrListingNotActive)
	}
	return outcome, nil
}

func (service *Service) settleListing(ctx context.Context, listingID ListingID, nowUnixUTC int64, force bool) (SettlementOutcome, error) {
	outcome := OutcomeSkipped
	var queued []Notification
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		listing, locked, err := transactionStore.TryLockListing(ctx, listingID)
		if err != nil {
			return err
		}
		if !locked || listing.Status != ListingStatusActive {
			return nil
		}
		if !force && listing.EndUnixUTC > nowUnixUTC {
			return nil
		}
		if err := transactionStore.UpdateListingStatus(ctx, listingID, ListingStatusActive, ListingStatusEnded); err != nil {
			return err
		}
		if listing.HighestBidder == nil {
			outcome = OutcomeNoBids
			return nil
		}
		winnerID := *listing.HighestBidder
		// Listing row lock is already held; the wallet lock comes second,
		// matching the bid path's lock order.
		balance, err := transactionStore.GetWalletForUpdate(ctx, winnerID)
		if err != nil {
			return err
		}
		if balance < listing.CurrentPrice {
			// Named policy: a winner who spent their points between bid and
			// close keeps the win but is not charged and no debt is created.
			outcome = OutcomeWinnerUnderfunded
		} else {
			listingRef := listingID
			winDescription := fmt.Sprintf("Won auction %q", listing.Title)
			winKey := deriveIdempotencyKey(idempotencyPrefixSettlement, listingID)
			if err := debitWallet(ctx, transactionStore, winnerID, listing.CurrentPrice, winDescription, KindAuctionWinDeduction, winKey, &listingRef, nowUnixUTC); err != nil {
				return err
			}
			outcome = OutcomeWinnerCharged
		}
		bidders, err := transactionStore.ListDistinctBidders(ctx, listingID)
		if err != nil {
			return err
		}
		queued = buildSettlementNotifications(listing, winnerID, bidders, outcome, nowUnixUTC)
		return nil
	})
	if operationError != nil {
		return OutcomeSkipped, operationError
	}
	service.dispatchNotifications(ctx, queued)
	return outcome, nil
}

func buildSettlementNotifications(listing Listing, winnerID UserID, bidders []UserID, outcome SettlementOutcome, nowUnixUTC int64) []Notification {
	listingRef := listing.ListingID
	notifications := []Notification{{
		OwnerID:        winnerID,
		Type:           NotifyAuctionWon,
		Title:          "Auction won",
		Message:        fmt.Sprintf("You won %q at %d points.", listing.Title, listing.CurrentPrice),
		ListingID:      &listingRef,
		CreatedUnixUTC: nowUnixUTC,
	}}
	if outcome == OutcomeWinnerCharged {
		notifications = append(notifications, Notification{
			OwnerID:        winnerID,
			Type:           NotifyOrderConfirmed,
			Title:          "Order confirmed",
			Message:        fmt.Sprintf("%d points were deducted for %q.", listing.CurrentPrice, listing.Title),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		})
	}
	for _, bidderID := range bidders {
		if bidderID == winnerID {
			continue
		}
		notifications = append(notifications, Notification{
			OwnerID:        bidderID,
			Type:           NotifyAuctionLost,
			Title:          "Auction ended",
			Message:        fmt.Sprintf("%q ended at %d points; your bid did not win.", listing.Title, listing.CurrentPrice),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		})
	}
	return notifications
}
