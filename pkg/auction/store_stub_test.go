package auction

import (
	"context"
	"fmt"
	"testing"
)

// stubStore is an in-memory Store. Error fields inject failures per method;
// lockedListings simulates rows held by a concurrent transaction.
type stubStore struct {
	accounts       map[UserID]Account
	wallets        map[UserID]Points
	entries        []LedgerEntry
	listings       map[ListingID]Listing
	bids           []Bid
	notifications  []Notification
	idempotency    map[string]struct{}
	lockedListings map[ListingID]struct{}
	nextID         int

	getAccountError         error
	getWalletError          error
	adjustWalletError       error
	getListingError         error
	insertEntryError        error
	insertBidError          error
	applyBidError           error
	updateStatusError       error
	listBiddersError        error
	insertNotificationError error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		accounts:       make(map[UserID]Account),
		wallets:        make(map[UserID]Points),
		listings:       make(map[ListingID]Listing),
		idempotency:    make(map[string]struct{}),
		lockedListings: make(map[ListingID]struct{}),
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) GetAccount(ctx context.Context, userID UserID) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	account, ok := store.accounts[userID]
	if !ok {
		return Account{}, ErrUnknownAccount
	}
	return account, nil
}

func (store *stubStore) CreateAccount(ctx context.Context, account Account) error {
	if _, exists := store.accounts[account.UserID]; exists {
		return ErrAccountExists
	}
	store.accounts[account.UserID] = account
	return nil
}

func (store *stubStore) SetAccountSuspended(ctx context.Context, userID UserID, suspended bool) error {
	account, ok := store.accounts[userID]
	if !ok {
		return ErrUnknownAccount
	}
	account.Suspended = suspended
	store.accounts[userID] = account
	return nil
}

func (store *stubStore) GetOrCreateWallet(ctx context.Context, userID UserID) (Points, error) {
	if store.getWalletError != nil {
		return 0, store.getWalletError
	}
	balance, ok := store.wallets[userID]
	if !ok {
		store.wallets[userID] = 0
		return 0, nil
	}
	return balance, nil
}

func (store *stubStore) GetWalletForUpdate(ctx context.Context, userID UserID) (Points, error) {
	if store.getWalletError != nil {
		return 0, store.getWalletError
	}
	balance, ok := store.wallets[userID]
	if !ok {
		return 0, ErrUnknownWallet
	}
	return balance, nil
}

func (store *stubStore) AdjustWalletBalance(ctx context.Context, userID UserID, delta Points) error {
	if store.adjustWalletError != nil {
		return store.adjustWalletError
	}
	if _, ok := store.wallets[userID]; !ok {
		return ErrUnknownWallet
	}
	store.wallets[userID] += delta
	return nil
}

func (store *stubStore) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	if store.insertEntryError != nil {
		return store.insertEntryError
	}
	idempotencyScope := entry.OwnerID.String() + "|" + entry.IdempotencyKey
	if _, exists := store.idempotency[idempotencyScope]; exists {
		return ErrDuplicateIdempotencyKey
	}
	store.idempotency[idempotencyScope] = struct{}{}
	entry.EntryID = store.allocateID("entry")
	store.entries = append(store.entries, entry)
	return nil
}

func (store *stubStore) ListLedgerEntries(ctx context.Context, ownerID UserID, beforeUnixUTC int64, limit int) ([]LedgerEntry, error) {
	var result []LedgerEntry
	for _, entry := range store.entries {
		if entry.OwnerID == ownerID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (store *stubStore) CreateListing(ctx context.Context, listing Listing) (ListingID, error) {
	listingID, err := NewListingID(store.allocateID("listing"))
	if err != nil {
		return ListingID{}, err
	}
	listing.ListingID = listingID
	store.listings[listingID] = listing
	return listingID, nil
}

func (store *stubStore) GetListing(ctx context.Context, listingID ListingID) (Listing, error) {
	if store.getListingError != nil {
		return Listing{}, store.getListingError
	}
	listing, ok := store.listings[listingID]
	if !ok {
		return Listing{}, ErrUnknownListing
	}
	return listing, nil
}

func (store *stubStore) GetListingForUpdate(ctx context.Context, listingID ListingID) (Listing, error) {
	return store.GetListing(ctx, listingID)
}

func (store *stubStore) TryLockListing(ctx context.Context, listingID ListingID) (Listing, bool, error) {
	if store.getListingError != nil {
		return Listing{}, false, store.getListingError
	}
	if _, contended := store.lockedListings[listingID]; contended {
		return Listing{}, false, nil
	}
	listing, ok := store.listings[listingID]
	if !ok {
		return Listing{}, false, nil
	}
	return listing, true, nil
}

func (store *stubStore) UpdateListingStatus(ctx context.Context, listingID ListingID, from ListingStatus, to ListingStatus) error {
	if store.updateStatusError != nil {
		return store.updateStatusError
	}
	listing, ok := store.listings[listingID]
	if !ok || listing.Status != from {
		return ErrListingNotActive
	}
	listing.Status = to
	store.listings[listingID] = listing
	return nil
}

func (store *stubStore) UpdateListingWindow(ctx context.Context, listingID ListingID, startUnixUTC int64, endUnixUTC int64, status ListingStatus) error {
	listing, ok := store.listings[listingID]
	if !ok {
		return ErrUnknownListing
	}
	listing.StartUnixUTC = startUnixUTC
	listing.EndUnixUTC = endUnixUTC
	listing.Status = status
	store.listings[listingID] = listing
	return nil
}

func (store *stubStore) ApplyBid(ctx context.Context, listingID ListingID, bidderID UserID, amount Points) error {
	if store.applyBidError != nil {
		return store.applyBidError
	}
	listing, ok := store.listings[listingID]
	if !ok {
		return ErrUnknownListing
	}
	listing.CurrentPrice = amount
	bidder := bidderID
	listing.HighestBidder = &bidder
	listing.BidCount++
	store.listings[listingID] = listing
	return nil
}

func (store *stubStore) ListExpiredActiveListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]ListingID, error) {
	var listingIDs []ListingID
	for listingID, listing := range store.listings {
		if listing.Status == ListingStatusActive && listing.EndUnixUTC <= nowUnixUTC {
			listingIDs = append(listingIDs, listingID)
		}
	}
	return listingIDs, nil
}

func (store *stubStore) ListDueScheduledListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]ListingID, error) {
	var listingIDs []ListingID
	for listingID, listing := range store.listings {
		if listing.Status == ListingStatusScheduled && listing.StartUnixUTC <= nowUnixUTC {
			listingIDs = append(listingIDs, listingID)
		}
	}
	return listingIDs, nil
}

func (store *stubStore) InsertBid(ctx context.Context, bid Bid) (BidID, error) {
	if store.insertBidError != nil {
		return BidID{}, store.insertBidError
	}
	bidID, err := NewBidID(store.allocateID("bid"))
	if err != nil {
		return BidID{}, err
	}
	bid.BidID = bidID
	store.bids = append(store.bids, bid)
	return bidID, nil
}

func (store *stubStore) ListBids(ctx context.Context, listingID ListingID, limit int) ([]Bid, error) {
	var result []Bid
	for _, bid := range store.bids {
		if bid.ListingID == listingID {
			result = append(result, bid)
		}
	}
	return result, nil
}

func (store *stubStore) ListDistinctBidders(ctx context.Context, listingID ListingID) ([]UserID, error) {
	if store.listBiddersError != nil {
		return nil, store.listBiddersError
	}
	seen := make(map[UserID]struct{})
	var bidders []UserID
	for _, bid := range store.bids {
		if bid.ListingID != listingID {
			continue
		}
		if _, duplicate := seen[bid.BidderID]; duplicate {
			continue
		}
		seen[bid.BidderID] = struct{}{}
		bidders = append(bidders, bid.BidderID)
	}
	return bidders, nil
}

func (store *stubStore) InsertNotification(ctx context.Context, notification Notification) error {
	if store.insertNotificationError != nil {
		return store.insertNotificationError
	}
	notification.NotificationID = store.allocateID("notification")
	store.notifications = append(store.notifications, notification)
	return nil
}

func (store *stubStore) ListNotifications(ctx context.Context, ownerID UserID, limit int) ([]Notification, error) {
	var result []Notification
	for _, notification := range store.notifications {
		if notification.OwnerID == ownerID {
			result = append(result, notification)
		}
	}
	return result, nil
}

func (store *stubStore) MarkNotificationRead(ctx context.Context, ownerID UserID, notificationID string) error {
	for index, notification := range store.notifications {
		if notification.OwnerID == ownerID && notification.NotificationID == notificationID {
			store.notifications[index].Read = true
			return nil
		}
	}
	return ErrUnknownNotification
}

func (store *stubStore) allocateID(prefix string) string {
	store.nextID++
	return fmt.Sprintf("%s-%d", prefix, store.nextID)
}

func (store *stubStore) mustListing(test *testing.T, listingID ListingID) Listing {
	test.Helper()
	listing, ok := store.listings[listingID]
	if !ok {
		test.Fatalf("listing %s not found", listingID.String())
	}
	return listing
}

func (store *stubStore) notificationTypes(ownerID UserID) []NotificationType {
	var types []NotificationType
	for _, notification := range store.notifications {
		if notification.OwnerID == ownerID {
			types = append(types, notification.Type)
		}
	}
	return types
}

func (store *stubStore) seedAccount(test *testing.T, rawUserID string, role AccountRole, balance int64) UserID {
	test.Helper()
	userID := mustUserID(test, rawUserID)
	store.accounts[userID] = Account{UserID: userID, Role: role}
	store.wallets[userID] = Points(balance)
	return userID
}

func (store *stubStore) seedListing(test *testing.T, listing Listing) ListingID {
	test.Helper()
	listingID := mustListingID(test, store.allocateID("listing"))
	listing.ListingID = listingID
	store.listings[listingID] = listing
	return listingID
}

func mustNewService(test *testing.T, store Store, nowUnixUTC int64, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return nowUnixUTC }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	value, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return value
}

func mustListingID(test *testing.T, raw string) ListingID {
	test.Helper()
	value, err := NewListingID(raw)
	if err != nil {
		test.Fatalf("listing id: %v", err)
	}
	return value
}

func mustPositivePoints(test *testing.T, raw int64) PositivePoints {
	test.Helper()
	value, err := NewPositivePoints(raw)
	if err != nil {
		test.Fatalf("amount: %v", err)
	}
	return value
}

func containsNotification(types []NotificationType, wanted NotificationType) bool {
	for _, notificationType := range types {
		if notificationType == wanted {
			return true
		}
	}
	return false
}
