package auction

import (
	"context"
	"errors"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsPlaceBidOperation(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	sellerID := store.seedAccount(test, "seller-1", RoleSeller, 0)
	bidderID := store.seedAccount(test, "bidder-1", RoleBuyer, 5_000)
	listingID := store.seedListing(test, activeListingFixture(sellerID, 1_000, 100))
	logger := &recorderLogger{}
	service := mustNewService(test, store, fixedNowUnixUTC, WithOperationLogger(logger))

	if _, err := service.PlaceBid(context.Background(), listingID, bidderID, mustPositivePoints(test, 1_000)); err != nil {
		test.Fatalf("place bid: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationPlaceBid || entry.UserID != bidderID || entry.ListingID != listingID || entry.Amount != 1_000 {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.getAccountError = errors.New("boom")
	logger := &recorderLogger{}
	service := mustNewService(test, store, fixedNowUnixUTC, WithOperationLogger(logger))
	listingID := mustListingID(test, "listing-1")
	bidderID := mustUserID(test, "bidder-1")

	if _, err := service.PlaceBid(context.Background(), listingID, bidderID, mustPositivePoints(test, 1_000)); err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}

func TestNotificationFailureIsLogged(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	sellerID := store.seedAccount(test, "seller-1", RoleSeller, 0)
	bidderID := store.seedAccount(test, "bidder-1", RoleBuyer, 5_000)
	listingID := store.seedListing(test, activeListingFixture(sellerID, 1_000, 100))
	store.insertNotificationError = errors.New("sink down")
	logger := &recorderLogger{}
	service := mustNewService(test, store, fixedNowUnixUTC, WithOperationLogger(logger))

	if _, err := service.PlaceBid(context.Background(), listingID, bidderID, mustPositivePoints(test, 1_000)); err != nil {
		test.Fatalf("place bid: %v", err)
	}
	var notifyFailures int
	for _, entry := range logger.entries {
		if entry.Operation == operationNotify && entry.Error != nil {
			notifyFailures++
		}
	}
	if notifyFailures == 0 {
		test.Fatalf("expected logged notification failures, got %+v", logger.entries)
	}
}
