package auction

import (
	"context"
	"fmt"
)

// CreateListingInput carries the seller-provided fields of a new listing.
type CreateListingInput struct {
	SellerID         UserID
	Title            string
	Description      string
	Category         string
	Condition        string
	StartingPrice    PositivePoints
	MinimumIncrement PositivePoints
	Images           []string
}

// CreateListing records a new DRAFT listing for a seller. The current price
// starts at the starting price and only bids move it.
func (service *Service) CreateListing(ctx context.Context, input CreateListingInput) (ListingID, error) {
	var listingID ListingID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		seller, err := transactionStore.GetAccount(ctx, input.SellerID)
		if err != nil {
			return err
		}
		if seller.Suspended {
			return ErrAccountSuspended
		}
		if seller.Role != RoleSeller {
			return fmt.Errorf("%w: only sellers create listings", ErrNotOwner)
		}
		listingID, err = transactionStore.CreateListing(ctx, Listing{
			SellerID:         input.SellerID,
			Title:            input.Title,
			Description:      input.Description,
			Category:         input.Category,
			Condition:        input.Condition,
			StartingPrice:    input.StartingPrice.ToPoints(),
			MinimumIncrement: input.MinimumIncrement.ToPoints(),
			CurrentPrice:     input.StartingPrice.ToPoints(),
			Status:           ListingStatusDraft,
			Images:           input.Images,
		})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateListing,
		UserID:    input.SellerID,
		ListingID: listingID,
		Amount:    input.StartingPrice.ToPoints(),
		Error:     operationError,
	})
	if operationError != nil {
		return ListingID{}, operationError
	}
	return listingID, nil
}

// ActivateListing moves a DRAFT listing into its bidding window. When a start
// time in the future is given the listing parks in SCHEDULED and the sweeper
// opens it; otherwise it goes ACTIVE immediately. A configured listing fee is
// charged to the seller in the same transaction.
func (service *Service) ActivateListing(ctx context.Context, listingID ListingID, sellerID UserID, startUnixUTC int64, endUnixUTC int64) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		listing, err := transactionStore.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerID != sellerID {
			return ErrNotOwner
		}
		if listing.Status != ListingStatusDraft {
			return fmt.Errorf("%w: status is %s", ErrListingNotActive, listing.Status)
		}
		nowUnixUTC := service.nowFn()
		if startUnixUTC == 0 {
			startUnixUTC = nowUnixUTC
		}
		if endUnixUTC <= startUnixUTC || endUnixUTC <= nowUnixUTC {
			return fmt.Errorf("%w: end %d must follow start %d", ErrInvalidListingWindow, endUnixUTC, startUnixUTC)
		}
		if service.listingFee > 0 {
			listingRef := listingID
			feeDescription := fmt.Sprintf("Listing fee for %q", listing.Title)
			feeKey := deriveIdempotencyKey(idempotencyPrefixListingFee, listingID)
			if err := debitWallet(ctx, transactionStore, sellerID, service.listingFee, feeDescription, KindListingFee, feeKey, &listingRef, nowUnixUTC); err != nil {
				return err
			}
		}
		status := ListingStatusActive
		if startUnixUTC > nowUnixUTC {
			status = ListingStatusScheduled
		}
		return transactionStore.UpdateListingWindow(ctx, listingID, startUnixUTC, endUnixUTC, status)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationActivateListing,
		UserID:    sellerID,
		ListingID: listingID,
		Amount:    service.listingFee,
		Error:     operationError,
	})
	return operationError
}

// CancelListing withdraws a listing that has not yet attracted a bid. Sellers
// can cancel their own DRAFT, SCHEDULED, or bid-free ACTIVE listings; ENDED
// and CANCELLED listings never transition again.
func (service *Service) CancelListing(ctx context.Context, listingID ListingID, sellerID UserID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		listing, err := transactionStore.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerID != sellerID {
			return ErrNotOwner
		}
		switch listing.Status {
		case ListingStatusDraft, ListingStatusScheduled, ListingStatusActive:
		default:
			return fmt.Errorf("%w: status is %s", ErrListingNotActive, listing.Status)
		}
		if listing.BidCount > 0 {
			return ErrListingHasBids
		}
		return transactionStore.UpdateListingStatus(ctx, listingID, listing.Status, ListingStatusCancelled)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCancelListing,
		UserID:    sellerID,
		ListingID: listingID,
		Error:     operationError,
	})
	return operationError
}

// OpenScheduledListings promotes SCHEDULED listings whose start time has
// passed to ACTIVE. It runs on the sweep interval and is idempotent: the
// status predicate excludes listings already opened.
func (service *Service) OpenScheduledListings(ctx context.Context) (int, error) {
	nowUnixUTC := service.nowFn()
	listingIDs, err := service.store.ListDueScheduledListingIDs(ctx, nowUnixUTC, scheduledBatchLimit)
	if err != nil {
		return 0, err
	}
	opened := 0
	for _, listingID := range listingIDs {
		operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			listing, locked, err := transactionStore.TryLockListing(ctx, listingID)
			if err != nil {
				return err
			}
			if !locked || listing.Status != ListingStatusScheduled || listing.StartUnixUTC > nowUnixUTC {
				return nil
			}
			if err := transactionStore.UpdateListingStatus(ctx, listingID, ListingStatusScheduled, ListingStatusActive); err != nil {
				return err
			}
			opened++
			return nil
		})
		if operationError != nil {
			service.logOperation(ctx, OperationLog{
				Operation: operationOpenScheduled,
				ListingID: listingID,
				Error:     operationError,
			})
		}
	}
	return opened, nil
}
