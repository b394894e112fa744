package auction

import (
	"context"
	"fmt"
)

// Service contains the marketplace domain logic over a Store.
type Service struct {
	store      Store
	nowFn      func() int64
	logger     OperationLogger
	listingFee Points
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// PlaceBidResult is the success payload of PlaceBid. PreviousHighestBidder is
// nil for a first bid or when the bidder raised their own high bid.
type PlaceBidResult struct {
	BidID                 BidID
	PreviousHighestBidder *UserID
	ListingTitle          string
	SellerID              UserID
	CurrentPrice          Points
}

// PlaceBid validates and commits one competing bid. All concurrent bids on the
// same listing serialize on the listing row lock; the bidder's wallet row is
// locked second so two simultaneous bids by one bidder cannot both be approved
// past their balance. Lock order is always listing first, wallet second.
// Rejections leave no side effects. The amount is validated by the
// PositivePoints constructor, so a non-positive amount is rejected before any
// of the ordered checks below run.
func (service *Service) PlaceBid(ctx context.Context, listingID ListingID, bidderID UserID, amount PositivePoints) (PlaceBidResult, error) {
	var result PlaceBidResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		bidder, err := transactionStore.GetAccount(ctx, bidderID)
		if err != nil {
			return err
		}
		if bidder.Suspended {
			return ErrAccountSuspended
		}
		listing, err := transactionStore.GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerID == bidderID {
			return ErrSelfBid
		}
		if listing.Status != ListingStatusActive {
			return fmt.Errorf("%w: status is %s", ErrListingNotActive, listing.Status)
		}
		nowUnixUTC := service.nowFn()
		// An ACTIVE row past its end time that the sweeper has not reached
		// yet is closed for bidding.
		if nowUnixUTC >= listing.EndUnixUTC {
			return ErrBiddingClosed
		}
		balance, err := transactionStore.GetWalletForUpdate(ctx, bidderID)
		if err != nil {
			return err
		}
		if balance < amount.ToPoints() {
			return fmt.Errorf("%w: balance is %d", ErrInsufficientFunds, balance)
		}
		minimum := listing.CurrentPrice
		if listing.HighestBidder != nil {
			minimum += listing.MinimumIncrement
		}
		if amount.ToPoints() < minimum {
			return fmt.Errorf("%w: minimum bid is %d", ErrBidBelowMinimum, minimum)
		}
		if listing.HighestBidder != nil && *listing.HighestBidder == bidderID && amount.ToPoints() == listing.CurrentPrice {
			return ErrRedundantBid
		}
		bidID, err := transactionStore.InsertBid(ctx, Bid{
			ListingID:      listingID,
			BidderID:       bidderID,
			AmountPoints:   amount.ToPoints(),
			CreatedUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		if err := transactionStore.ApplyBid(ctx, listingID, bidderID, amount.ToPoints()); err != nil {
			return err
		}
		var previousHighest *UserID
		if listing.HighestBidder != nil && *listing.HighestBidder != bidderID {
			previous := *listing.HighestBidder
			previousHighest = &previous
		}
		result = PlaceBidResult{
			BidID:                 bidID,
			PreviousHighestBidder: previousHighest,
			ListingTitle:          listing.Title,
			SellerID:              listing.SellerID,
			CurrentPrice:          amount.ToPoints(),
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationPlaceBid,
		UserID:    bidderID,
		ListingID: listingID,
		Amount:    amount.ToPoints(),
		Error:     operationError,
	})
	if operationError != nil {
		return PlaceBidResult{}, operationError
	}
	service.dispatchNotifications(ctx, buildBidNotifications(listingID, bidderID, result, service.nowFn()))
	return result, nil
}

// RegisterAccount creates an account and its zero-balance wallet.
func (service *Service) RegisterAccount(ctx context.Context, userID UserID, role AccountRole) error {
	if _, err := ParseAccountRole(role.String()); err != nil {
		return err
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.CreateAccount(ctx, Account{UserID: userID, Role: role}); err != nil {
			return err
		}
		_, err := transactionStore.GetOrCreateWallet(ctx, userID)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRegisterAccount,
		UserID:    userID,
		Error:     operationError,
	})
	return operationError
}

// SetAccountSuspended toggles the suspension flag on an account.
func (service *Service) SetAccountSuspended(ctx context.Context, userID UserID, suspended bool) error {
	operationError := service.store.SetAccountSuspended(ctx, userID, suspended)
	service.logOperation(ctx, OperationLog{
		Operation: operationSuspendAccount,
		UserID:    userID,
		Error:     operationError,
	})
	return operationError
}

// GetListing returns one listing.
func (service *Service) GetListing(ctx context.Context, listingID ListingID) (Listing, error) {
	return service.store.GetListing(ctx, listingID)
}

// ListBids returns the committed bids for a listing, newest first.
func (service *Service) ListBids(ctx context.Context, listingID ListingID, limit int) ([]Bid, error) {
	if _, err := service.store.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return service.store.ListBids(ctx, listingID, limit)
}

// ListNotifications returns the owner's inbox, newest first.
func (service *Service) ListNotifications(ctx context.Context, ownerID UserID, limit int) ([]Notification, error) {
	return service.store.ListNotifications(ctx, ownerID, limit)
}

// MarkNotificationRead flags one of the owner's notifications as read.
func (service *Service) MarkNotificationRead(ctx context.Context, ownerID UserID, notificationID string) error {
	return service.store.MarkNotificationRead(ctx, ownerID, notificationID)
}

// dispatchNotifications appends inbox messages after the owning transaction
// has committed. Dispatch is best effort: a failure is logged and never
// propagated to the caller.
func (service *Service) dispatchNotifications(ctx context.Context, notifications []Notification) {
	for _, notification := range notifications {
		if err := service.store.InsertNotification(ctx, notification); err != nil {
			service.logOperation(ctx, OperationLog{
				Operation: operationNotify,
				UserID:    notification.OwnerID,
				Error:     err,
			})
		}
	}
}

func buildBidNotifications(listingID ListingID, bidderID UserID, result PlaceBidResult, nowUnixUTC int64) []Notification {
	listingRef := listingID
	notifications := []Notification{
		{
			OwnerID:        bidderID,
			Type:           NotifyBidPlaced,
			Title:          "Bid placed",
			Message:        fmt.Sprintf("Your bid of %d points on %q was placed.", result.CurrentPrice, result.ListingTitle),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		},
		{
			OwnerID:        bidderID,
			Type:           NotifyHighestBidder,
			Title:          "You are the highest bidder",
			Message:        fmt.Sprintf("You lead %q at %d points.", result.ListingTitle, result.CurrentPrice),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		},
		{
			OwnerID:        result.SellerID,
			Type:           NotifyNewBidReceived,
			Title:          "New bid received",
			Message:        fmt.Sprintf("%q received a bid of %d points.", result.ListingTitle, result.CurrentPrice),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		},
	}
	if result.PreviousHighestBidder != nil {
		notifications = append(notifications, Notification{
			OwnerID:        *result.PreviousHighestBidder,
			Type:           NotifyOutbid,
			Title:          "You have been outbid",
			Message:        fmt.Sprintf("Someone outbid you on %q; the price is now %d points.", result.ListingTitle, result.CurrentPrice),
			ListingID:      &listingRef,
			CreatedUnixUTC: nowUnixUTC,
		})
	}
	return notifications
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func deriveIdempotencyKey(prefix string, listingID ListingID) string {
	return prefix + idempotencyKeyDelimiter + listingID.String()
}
