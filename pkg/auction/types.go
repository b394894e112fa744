package auction

import (
	"context"
	"fmt"
	"strings"
)

// Points is the integer wallet currency. Ledger entry amounts are signed;
// everything else in the domain is non-negative.
type Points int64

// Int64 returns the raw point value.
func (points Points) Int64() int64 {
	return int64(points)
}

// PositivePoints is a validated, strictly positive amount.
type PositivePoints int64

// NewPositivePoints validates an amount and ensures it is strictly positive.
func NewPositivePoints(raw int64) (PositivePoints, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return PositivePoints(raw), nil
}

// ToPoints converts the amount to a signed point value.
func (amount PositivePoints) ToPoints() Points {
	return Points(amount)
}

// Int64 returns the raw point value.
func (amount PositivePoints) Int64() int64 {
	return int64(amount)
}

// UserID identifies an account owner.
type UserID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// ListingID identifies an auction listing.
type ListingID struct {
	value string
}

// NewListingID validates and normalizes a listing id.
func NewListingID(raw string) (ListingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ListingID{}, fmt.Errorf("%w: empty value", ErrInvalidListingID)
	}
	return ListingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ListingID) String() string {
	return id.value
}

// BidID identifies a committed bid.
type BidID struct {
	value string
}

// NewBidID validates and normalizes a bid id.
func NewBidID(raw string) (BidID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BidID{}, fmt.Errorf("%w: empty value", ErrInvalidBidID)
	}
	return BidID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BidID) String() string {
	return id.value
}

// AccountRole distinguishes sellers from buyers.
type AccountRole string

const (
	RoleSeller AccountRole = "seller"
	RoleBuyer  AccountRole = "buyer"
)

// ParseAccountRole validates a stored role value.
func ParseAccountRole(raw string) (AccountRole, error) {
	switch AccountRole(raw) {
	case RoleSeller, RoleBuyer:
		return AccountRole(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountRole, raw)
}

// String returns the stored role value.
func (role AccountRole) String() string {
	return string(role)
}

// ListingStatus defines the listing lifecycle.
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusScheduled ListingStatus = "scheduled"
	ListingStatusActive    ListingStatus = "active"
	ListingStatusEnded     ListingStatus = "ended"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// ParseListingStatus validates a stored status value.
func ParseListingStatus(raw string) (ListingStatus, error) {
	switch ListingStatus(raw) {
	case ListingStatusDraft, ListingStatusScheduled, ListingStatusActive, ListingStatusEnded, ListingStatusCancelled:
		return ListingStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListingStatus, raw)
}

// String returns the stored status value.
func (status ListingStatus) String() string {
	return string(status)
}

// LedgerKind enumerates wallet ledger entry kinds.
type LedgerKind string

const (
	KindTopUp               LedgerKind = "top_up"
	KindListingFee          LedgerKind = "listing_fee"
	KindBidDeduction        LedgerKind = "bid_deduction"
	KindAuctionWinDeduction LedgerKind = "auction_win_deduction"
	KindRefund              LedgerKind = "refund"
)

// ParseLedgerKind validates a stored ledger kind value.
func ParseLedgerKind(raw string) (LedgerKind, error) {
	switch LedgerKind(raw) {
	case KindTopUp, KindListingFee, KindBidDeduction, KindAuctionWinDeduction, KindRefund:
		return LedgerKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLedgerKind, raw)
}

// String returns the stored kind value.
func (kind LedgerKind) String() string {
	return string(kind)
}

// IsCredit reports whether entries of this kind add points to a wallet.
func (kind LedgerKind) IsCredit() bool {
	return kind == KindTopUp || kind == KindRefund
}

// NotificationType enumerates inbox message types.
type NotificationType string

const (
	NotifyBidPlaced      NotificationType = "bid_placed"
	NotifyHighestBidder  NotificationType = "highest_bidder"
	NotifyOutbid         NotificationType = "outbid"
	NotifyNewBidReceived NotificationType = "new_bid_received"
	NotifyAuctionWon     NotificationType = "auction_won"
	NotifyAuctionLost    NotificationType = "auction_lost"
	NotifyOrderConfirmed NotificationType = "order_confirmed"
)

// ParseNotificationType validates a stored notification type value.
func ParseNotificationType(raw string) (NotificationType, error) {
	switch NotificationType(raw) {
	case NotifyBidPlaced, NotifyHighestBidder, NotifyOutbid, NotifyNewBidReceived,
		NotifyAuctionWon, NotifyAuctionLost, NotifyOrderConfirmed:
		return NotificationType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNotificationType, raw)
}

// String returns the stored type value.
func (notificationType NotificationType) String() string {
	return string(notificationType)
}

// Account is a registered marketplace identity.
type Account struct {
	UserID    UserID
	Role      AccountRole
	Suspended bool
}

// Listing is one auction.
type Listing struct {
	ListingID        ListingID
	SellerID         UserID
	Title            string
	Description      string
	Category         string
	Condition        string
	StartingPrice    Points
	MinimumIncrement Points
	CurrentPrice     Points
	HighestBidder    *UserID
	BidCount         int64
	StartUnixUTC     int64
	EndUnixUTC       int64
	Status           ListingStatus
	Images           []string
}

// Bid is one immutable committed bid.
type Bid struct {
	BidID          BidID
	ListingID      ListingID
	BidderID       UserID
	AmountPoints   Points
	CreatedUnixUTC int64
}

// LedgerEntry is a single immutable line in a wallet's ledger. The sum of all
// entries for an owner equals that owner's wallet balance.
type LedgerEntry struct {
	EntryID        string
	OwnerID        UserID
	Kind           LedgerKind
	AmountPoints   Points
	Description    string
	ListingID      *ListingID
	IdempotencyKey string
	CreatedUnixUTC int64
}

// Notification is one append-only inbox message.
type Notification struct {
	NotificationID string
	OwnerID        UserID
	Type           NotificationType
	Title          string
	Message        string
	ListingID      *ListingID
	Read           bool
	CreatedUnixUTC int64
}

// Store is the persistence contract used by Service. Implementations must
// provide row-level locking semantics: ForUpdate variants block until the row
// lock is granted, TryLockListing skips instead of waiting.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetAccount(ctx context.Context, userID UserID) (Account, error)
	CreateAccount(ctx context.Context, account Account) error
	SetAccountSuspended(ctx context.Context, userID UserID, suspended bool) error

	GetOrCreateWallet(ctx context.Context, userID UserID) (Points, error)
	GetWalletForUpdate(ctx context.Context, userID UserID) (Points, error)
	AdjustWalletBalance(ctx context.Context, userID UserID, delta Points) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error
	ListLedgerEntries(ctx context.Context, ownerID UserID, beforeUnixUTC int64, limit int) ([]LedgerEntry, error)

	CreateListing(ctx context.Context, listing Listing) (ListingID, error)
	GetListing(ctx context.Context, listingID ListingID) (Listing, error)
	GetListingForUpdate(ctx context.Context, listingID ListingID) (Listing, error)
	TryLockListing(ctx context.Context, listingID ListingID) (Listing, bool, error)
	UpdateListingStatus(ctx context.Context, listingID ListingID, from ListingStatus, to ListingStatus) error
	UpdateListingWindow(ctx context.Context, listingID ListingID, startUnixUTC int64, endUnixUTC int64, status ListingStatus) error
	ApplyBid(ctx context.Context, listingID ListingID, bidderID UserID, amount Points) error
	ListExpiredActiveListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]ListingID, error)
	ListDueScheduledListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]ListingID, error)

	InsertBid(ctx context.Context, bid Bid) (BidID, error)
	ListBids(ctx context.Context, listingID ListingID, limit int) ([]Bid, error)
	ListDistinctBidders(ctx context.Context, listingID ListingID) ([]UserID, error)

	InsertNotification(ctx context.Context, notification Notification) error
	ListNotifications(ctx context.Context, ownerID UserID, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, ownerID UserID, notificationID string) error
}
