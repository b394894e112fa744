package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	UserID    string    `gorm:"primaryKey"`
	Role      string    `gorm:"not null"`
	Suspended bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

// Wallet holds one account's point balance. Balance changes always pair with
// a ledger entry inside the same transaction.
type Wallet struct {
	UserID        string    `gorm:"primaryKey"`
	BalancePoints int64     `gorm:"not null;default:0;check:chk_wallets_balance,balance_points >= 0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

// LedgerEntry mirrors the ledger_entries table. Rows are insert-only.
type LedgerEntry struct {
	EntryID        string    `gorm:"type:uuid;primaryKey"`
	OwnerID        string    `gorm:"not null;index:idx_ledger_owner_created,priority:1;index:uniq_ledger_owner_idem,unique,priority:1"`
	Kind           string    `gorm:"not null"`
	AmountPoints   int64     `gorm:"not null"`
	Description    string    `gorm:"type:text"`
	ListingID      *string   `gorm:"type:uuid;index"`
	IdempotencyKey string    `gorm:"not null;index:uniq_ledger_owner_idem,unique,priority:2"`
	CreatedAt      time.Time `gorm:"not null;index:idx_ledger_owner_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (entry *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// Listing mirrors the listings table.
type Listing struct {
	ListingID        string         `gorm:"type:uuid;primaryKey"`
	SellerID         string         `gorm:"not null;index"`
	Title            string         `gorm:"not null"`
	Description      string         `gorm:"type:text"`
	Category         string         `gorm:""`
	Condition        string         `gorm:""`
	StartingPrice    int64          `gorm:"not null;check:chk_listings_starting_price,starting_price >= 1"`
	MinimumIncrement int64          `gorm:"not null;check:chk_listings_minimum_increment,minimum_increment >= 1"`
	CurrentPrice     int64          `gorm:"not null"`
	HighestBidder    *string        `gorm:""`
	BidCount         int64          `gorm:"not null;default:0"`
	StartAt          *time.Time     `gorm:""`
	EndAt            *time.Time     `gorm:"index:idx_listings_status_end,priority:2"`
	Status           string         `gorm:"not null;index:idx_listings_status_end,priority:1"`
	Images           datatypes.JSON `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null"`
	UpdatedAt        time.Time      `gorm:"not null"`
}

func (Listing) TableName() string { return "listings" }

func (listing *Listing) BeforeCreate(tx *gorm.DB) error {
	if listing.ListingID == "" {
		listing.ListingID = uuid.NewString()
	}
	return nil
}

// Bid mirrors the bids table. Rows are insert-only.
type Bid struct {
	BidID        string    `gorm:"type:uuid;primaryKey"`
	ListingID    string    `gorm:"type:uuid;not null;index:idx_bids_listing_created,priority:1"`
	BidderID     string    `gorm:"not null;index"`
	AmountPoints int64     `gorm:"not null;check:chk_bids_amount,amount_points >= 1"`
	CreatedAt    time.Time `gorm:"not null;index:idx_bids_listing_created,priority:2"`
}

func (Bid) TableName() string { return "bids" }

func (bid *Bid) BeforeCreate(tx *gorm.DB) error {
	if bid.BidID == "" {
		bid.BidID = uuid.NewString()
	}
	return nil
}

// Notification mirrors the notifications table.
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey"`
	OwnerID        string    `gorm:"not null;index:idx_notifications_owner_created,priority:1"`
	Type           string    `gorm:"not null"`
	Title          string    `gorm:"not null"`
	Message        string    `gorm:"type:text"`
	ListingID      *string   `gorm:"type:uuid"`
	Read           bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null;index:idx_notifications_owner_created,priority:2"`
}

func (Notification) TableName() string { return "notifications" }

func (notification *Notification) BeforeCreate(tx *gorm.DB) error {
	if notification.NotificationID == "" {
		notification.NotificationID = uuid.NewString()
	}
	return nil
}
