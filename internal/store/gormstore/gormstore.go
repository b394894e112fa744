package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintLedgerOwnerIdempotencyKey = "uniq_ledger_owner_idem"
	constraintAccountPrimary            = "accounts_pkey"
	dialectPostgres                     = "postgres"
	pgUniqueViolationCode               = "23505"
	sqliteConstraintCode                = 19
	emptyImagesJSON                     = "[]"
	clauseLockUpdate                    = "UPDATE"
	clauseLockSkipLocked                = "SKIP LOCKED"
	errorOperationStore                 = "store"
	errorSubjectAccount                 = "account"
	errorSubjectWallet                  = "wallet"
	errorSubjectEntry                   = "entry"
	errorSubjectListing                 = "listing"
	errorSubjectBid                     = "bid"
	errorSubjectNotification            = "notification"
	errorCodeCreate                     = "create"
	errorCodeDuplicate                  = "duplicate"
	errorCodeGet                        = "get"
	errorCodeInsert                     = "insert"
	errorCodeInvalid                    = "invalid"
	errorCodeList                       = "list"
	errorCodeLock                       = "lock"
	errorCodeUpdate                     = "update"
	errorCodeUpdateStatus               = "update_status"
)

// Store implements auction.Store using GORM. Row locks are issued on Postgres;
// SQLite serializes writers on its own, so the locking clauses are elided
// there and transaction scope provides the same guarantee.
type Store struct {
	db              *gorm.DB
	supportsRowLock bool
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		supportsRowLock: db.Dialector.Name() == dialectPostgres,
	}
}

// Migrate creates or updates the schema for every table the store owns.
func (store *Store) Migrate() error {
	return store.db.AutoMigrate(&Account{}, &Wallet{}, &LedgerEntry{}, &Listing{}, &Bid{}, &Notification{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore auction.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction, supportsRowLock: store.supportsRowLock})
	})
}

func (store *Store) GetAccount(ctx context.Context, userID auction.UserID) (auction.Account, error) {
	var model Account
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auction.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, auction.ErrUnknownAccount)
		}
		return auction.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(model)
}

func (store *Store) CreateAccount(ctx context.Context, account auction.Account) error {
	model := Account{
		UserID:    account.UserID.String(),
		Role:      account.Role.String(),
		Suspended: account.Suspended,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintAccountPrimary) {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, auction.ErrAccountExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) SetAccountSuspended(ctx context.Context, userID auction.UserID, suspended bool) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ?", userID.String()).
		Update("suspended", suspended)
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, auction.ErrUnknownAccount)
	}
	return nil
}

func (store *Store) GetOrCreateWallet(ctx context.Context, userID auction.UserID) (auction.Points, error) {
	var model Wallet
	err := store.db.WithContext(ctx).
		FirstOrCreate(&model, Wallet{UserID: userID.String()}).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return auction.Points(model.BalancePoints), nil
}

func (store *Store) GetWalletForUpdate(ctx context.Context, userID auction.UserID) (auction.Points, error) {
	var model Wallet
	query := store.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if store.supportsRowLock {
		query = query.Clauses(clause.Locking{Strength: clauseLockUpdate})
	}
	err := query.Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, wrapStoreError(errorSubjectWallet, errorCodeLock, auction.ErrUnknownWallet)
		}
		return 0, wrapStoreError(errorSubjectWallet, errorCodeLock, err)
	}
	return auction.Points(model.BalancePoints), nil
}

func (store *Store) AdjustWalletBalance(ctx context.Context, userID auction.UserID, delta auction.Points) error {
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("user_id = ?", userID.String()).
		Update("balance_points", gorm.Expr("balance_points + ?", delta.Int64()))
	if result.Error != nil {
		return wrapStoreError(errorSubjectWallet, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectWallet, errorCodeUpdate, auction.ErrUnknownWallet)
	}
	return nil
}

func (store *Store) InsertLedgerEntry(ctx context.Context, entry auction.LedgerEntry) error {
	model := LedgerEntry{
		OwnerID:        entry.OwnerID.String(),
		Kind:           entry.Kind.String(),
		AmountPoints:   entry.AmountPoints.Int64(),
		Description:    entry.Description,
		ListingID:      listingIDOrNil(entry.ListingID),
		IdempotencyKey: entry.IdempotencyKey,
		CreatedAt:      unixOrNow(entry.CreatedUnixUTC),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintLedgerOwnerIdempotencyKey) {
		return wrapStoreError(errorSubjectEntry, errorCodeDuplicate, auction.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListLedgerEntries(ctx context.Context, ownerID auction.UserID, beforeUnixUTC int64, limit int) ([]auction.LedgerEntry, error) {
	before := time.Unix(beforeUnixUTC, 0).UTC()
	if beforeUnixUTC == 0 {
		before = time.Now().UTC().Add(time.Second)
	}
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("owner_id = ? AND created_at < ?", ownerID.String(), before).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]auction.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, mapErr := mapLedgerEntry(row)
		if mapErr != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, mapErr)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (store *Store) CreateListing(ctx context.Context, listing auction.Listing) (auction.ListingID, error) {
	images, err := marshalImages(listing.Images)
	if err != nil {
		return auction.ListingID{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	model := Listing{
		SellerID:         listing.SellerID.String(),
		Title:            listing.Title,
		Description:      listing.Description,
		Category:         listing.Category,
		Condition:        listing.Condition,
		StartingPrice:    listing.StartingPrice.Int64(),
		MinimumIncrement: listing.MinimumIncrement.Int64(),
		CurrentPrice:     listing.CurrentPrice.Int64(),
		Status:           listing.Status.String(),
		Images:           images,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return auction.ListingID{}, wrapStoreError(errorSubjectListing, errorCodeCreate, err)
	}
	listingID, err := auction.NewListingID(model.ListingID)
	if err != nil {
		return auction.ListingID{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	return listingID, nil
}

func (store *Store) GetListing(ctx context.Context, listingID auction.ListingID) (auction.Listing, error) {
	return store.getListing(ctx, listingID, false, false)
}

func (store *Store) GetListingForUpdate(ctx context.Context, listingID auction.ListingID) (auction.Listing, error) {
	return store.getListing(ctx, listingID, true, false)
}

// TryLockListing attempts a non-blocking row lock. On Postgres a row held by a
// concurrent transaction is skipped via SKIP LOCKED and reported as not
// locked; the caller treats that the same as a vanished row and retries on
// the next sweep.
func (store *Store) TryLockListing(ctx context.Context, listingID auction.ListingID) (auction.Listing, bool, error) {
	listing, err := store.getListing(ctx, listingID, true, true)
	if err != nil {
		if errors.Is(err, auction.ErrUnknownListing) {
			return auction.Listing{}, false, nil
		}
		return auction.Listing{}, false, err
	}
	return listing, true, nil
}

func (store *Store) getListing(ctx context.Context, listingID auction.ListingID, forUpdate bool, skipLocked bool) (auction.Listing, error) {
	var model Listing
	query := store.db.WithContext(ctx).Where("listing_id = ?", listingID.String())
	if forUpdate && store.supportsRowLock {
		locking := clause.Locking{Strength: clauseLockUpdate}
		if skipLocked {
			locking.Options = clauseLockSkipLocked
		}
		query = query.Clauses(locking)
	}
	err := query.Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auction.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, auction.ErrUnknownListing)
		}
		return auction.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, err)
	}
	listing, mapErr := mapListing(model)
	if mapErr != nil {
		return auction.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, mapErr)
	}
	return listing, nil
}

func (store *Store) UpdateListingStatus(ctx context.Context, listingID auction.ListingID, from auction.ListingStatus, to auction.ListingStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("listing_id = ? AND status = ?", listingID.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectListing, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectListing, errorCodeUpdateStatus, auction.ErrListingNotActive)
	}
	return nil
}

func (store *Store) UpdateListingWindow(ctx context.Context, listingID auction.ListingID, startUnixUTC int64, endUnixUTC int64, status auction.ListingStatus) error {
	startAt := time.Unix(startUnixUTC, 0).UTC()
	endAt := time.Unix(endUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("listing_id = ?", listingID.String()).
		Updates(map[string]interface{}{
			"start_at": &startAt,
			"end_at":   &endAt,
			"status":   status.String(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, auction.ErrUnknownListing)
	}
	return nil
}

func (store *Store) ApplyBid(ctx context.Context, listingID auction.ListingID, bidderID auction.UserID, amount auction.Points) error {
	result := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("listing_id = ?", listingID.String()).
		Updates(map[string]interface{}{
			"current_price":  amount.Int64(),
			"highest_bidder": bidderID.String(),
			"bid_count":      gorm.Expr("bid_count + 1"),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, auction.ErrUnknownListing)
	}
	return nil
}

func (store *Store) ListExpiredActiveListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]auction.ListingID, error) {
	return store.listListingIDs(ctx,
		"status = ? AND end_at <= ?",
		[]interface{}{auction.ListingStatusActive.String(), time.Unix(nowUnixUTC, 0).UTC()},
		"end_at", limit)
}

func (store *Store) ListDueScheduledListingIDs(ctx context.Context, nowUnixUTC int64, limit int) ([]auction.ListingID, error) {
	return store.listListingIDs(ctx,
		"status = ? AND start_at <= ?",
		[]interface{}{auction.ListingStatusScheduled.String(), time.Unix(nowUnixUTC, 0).UTC()},
		"start_at", limit)
}

func (store *Store) listListingIDs(ctx context.Context, condition string, arguments []interface{}, order string, limit int) ([]auction.ListingID, error) {
	var rawIDs []string
	err := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where(condition, arguments...).
		Order(order).
		Limit(limit).
		Pluck("listing_id", &rawIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectListing, errorCodeList, err)
	}
	listingIDs := make([]auction.ListingID, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		listingID, parseErr := auction.NewListingID(rawID)
		if parseErr != nil {
			return nil, wrapStoreError(errorSubjectListing, errorCodeInvalid, parseErr)
		}
		listingIDs = append(listingIDs, listingID)
	}
	return listingIDs, nil
}

func (store *Store) InsertBid(ctx context.Context, bid auction.Bid) (auction.BidID, error) {
	model := Bid{
		ListingID:    bid.ListingID.String(),
		BidderID:     bid.BidderID.String(),
		AmountPoints: bid.AmountPoints.Int64(),
		CreatedAt:    unixOrNow(bid.CreatedUnixUTC),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return auction.BidID{}, wrapStoreError(errorSubjectBid, errorCodeInsert, err)
	}
	bidID, err := auction.NewBidID(model.BidID)
	if err != nil {
		return auction.BidID{}, wrapStoreError(errorSubjectBid, errorCodeInvalid, err)
	}
	return bidID, nil
}

func (store *Store) ListBids(ctx context.Context, listingID auction.ListingID, limit int) ([]auction.Bid, error) {
	var rows []Bid
	err := store.db.WithContext(ctx).
		Where("listing_id = ?", listingID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBid, errorCodeList, err)
	}
	bids := make([]auction.Bid, 0, len(rows))
	for _, row := range rows {
		bid, mapErr := mapBid(row)
		if mapErr != nil {
			return nil, wrapStoreError(errorSubjectBid, errorCodeInvalid, mapErr)
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

func (store *Store) ListDistinctBidders(ctx context.Context, listingID auction.ListingID) ([]auction.UserID, error) {
	var rawIDs []string
	err := store.db.WithContext(ctx).
		Model(&Bid{}).
		Where("listing_id = ?", listingID.String()).
		Distinct("bidder_id").
		Pluck("bidder_id", &rawIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBid, errorCodeList, err)
	}
	bidders := make([]auction.UserID, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		bidderID, parseErr := auction.NewUserID(rawID)
		if parseErr != nil {
			return nil, wrapStoreError(errorSubjectBid, errorCodeInvalid, parseErr)
		}
		bidders = append(bidders, bidderID)
	}
	return bidders, nil
}

func (store *Store) InsertNotification(ctx context.Context, notification auction.Notification) error {
	model := Notification{
		OwnerID:   notification.OwnerID.String(),
		Type:      notification.Type.String(),
		Title:     notification.Title,
		Message:   notification.Message,
		ListingID: listingIDOrNil(notification.ListingID),
		Read:      notification.Read,
		CreatedAt: unixOrNow(notification.CreatedUnixUTC),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectNotification, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListNotifications(ctx context.Context, ownerID auction.UserID, limit int) ([]auction.Notification, error) {
	var rows []Notification
	err := store.db.WithContext(ctx).
		Where("owner_id = ?", ownerID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectNotification, errorCodeList, err)
	}
	notifications := make([]auction.Notification, 0, len(rows))
	for _, row := range rows {
		notification, mapErr := mapNotification(row)
		if mapErr != nil {
			return nil, wrapStoreError(errorSubjectNotification, errorCodeInvalid, mapErr)
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func (store *Store) MarkNotificationRead(ctx context.Context, ownerID auction.UserID, notificationID string) error {
	result := store.db.WithContext(ctx).
		Model(&Notification{}).
		Where("owner_id = ? AND notification_id = ?", ownerID.String(), notificationID).
		Update("read", true)
	if result.Error != nil {
		return wrapStoreError(errorSubjectNotification, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectNotification, errorCodeUpdate, auction.ErrUnknownNotification)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return auction.WrapError(errorOperationStore, subject, code, err)
}

func mapAccount(model Account) (auction.Account, error) {
	userID, err := auction.NewUserID(model.UserID)
	if err != nil {
		return auction.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	role, err := auction.ParseAccountRole(model.Role)
	if err != nil {
		return auction.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return auction.Account{UserID: userID, Role: role, Suspended: model.Suspended}, nil
}

func mapListing(model Listing) (auction.Listing, error) {
	listingID, err := auction.NewListingID(model.ListingID)
	if err != nil {
		return auction.Listing{}, err
	}
	sellerID, err := auction.NewUserID(model.SellerID)
	if err != nil {
		return auction.Listing{}, err
	}
	status, err := auction.ParseListingStatus(model.Status)
	if err != nil {
		return auction.Listing{}, err
	}
	var highestBidder *auction.UserID
	if model.HighestBidder != nil {
		bidderID, parseErr := auction.NewUserID(*model.HighestBidder)
		if parseErr != nil {
			return auction.Listing{}, parseErr
		}
		highestBidder = &bidderID
	}
	images, err := unmarshalImages(model.Images)
	if err != nil {
		return auction.Listing{}, err
	}
	return auction.Listing{
		ListingID:        listingID,
		SellerID:         sellerID,
		Title:            model.Title,
		Description:      model.Description,
		Category:         model.Category,
		Condition:        model.Condition,
		StartingPrice:    auction.Points(model.StartingPrice),
		MinimumIncrement: auction.Points(model.MinimumIncrement),
		CurrentPrice:     auction.Points(model.CurrentPrice),
		HighestBidder:    highestBidder,
		BidCount:         model.BidCount,
		StartUnixUTC:     timeOrZero(model.StartAt),
		EndUnixUTC:       timeOrZero(model.EndAt),
		Status:           status,
		Images:           images,
	}, nil
}

func mapBid(model Bid) (auction.Bid, error) {
	bidID, err := auction.NewBidID(model.BidID)
	if err != nil {
		return auction.Bid{}, err
	}
	listingID, err := auction.NewListingID(model.ListingID)
	if err != nil {
		return auction.Bid{}, err
	}
	bidderID, err := auction.NewUserID(model.BidderID)
	if err != nil {
		return auction.Bid{}, err
	}
	return auction.Bid{
		BidID:          bidID,
		ListingID:      listingID,
		BidderID:       bidderID,
		AmountPoints:   auction.Points(model.AmountPoints),
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapLedgerEntry(model LedgerEntry) (auction.LedgerEntry, error) {
	ownerID, err := auction.NewUserID(model.OwnerID)
	if err != nil {
		return auction.LedgerEntry{}, err
	}
	kind, err := auction.ParseLedgerKind(model.Kind)
	if err != nil {
		return auction.LedgerEntry{}, err
	}
	var listingID *auction.ListingID
	if model.ListingID != nil {
		parsedListingID, parseErr := auction.NewListingID(*model.ListingID)
		if parseErr != nil {
			return auction.LedgerEntry{}, parseErr
		}
		listingID = &parsedListingID
	}
	return auction.LedgerEntry{
		EntryID:        model.EntryID,
		OwnerID:        ownerID,
		Kind:           kind,
		AmountPoints:   auction.Points(model.AmountPoints),
		Description:    model.Description,
		ListingID:      listingID,
		IdempotencyKey: model.IdempotencyKey,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapNotification(model Notification) (auction.Notification, error) {
	ownerID, err := auction.NewUserID(model.OwnerID)
	if err != nil {
		return auction.Notification{}, err
	}
	notificationType, err := auction.ParseNotificationType(model.Type)
	if err != nil {
		return auction.Notification{}, err
	}
	var listingID *auction.ListingID
	if model.ListingID != nil {
		parsedListingID, parseErr := auction.NewListingID(*model.ListingID)
		if parseErr != nil {
			return auction.Notification{}, parseErr
		}
		listingID = &parsedListingID
	}
	return auction.Notification{
		NotificationID: model.NotificationID,
		OwnerID:        ownerID,
		Type:           notificationType,
		Title:          model.Title,
		Message:        model.Message,
		ListingID:      listingID,
		Read:           model.Read,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func listingIDOrNil(listingID *auction.ListingID) *string {
	if listingID == nil {
		return nil
	}
	value := listingID.String()
	return &value
}

func unixOrNow(unixUTC int64) time.Time {
	if unixUTC == 0 {
		return time.Now().UTC()
	}
	return time.Unix(unixUTC, 0).UTC()
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func marshalImages(images []string) (datatypes.JSON, error) {
	if len(images) == 0 {
		return datatypes.JSON([]byte(emptyImagesJSON)), nil
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalImages(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var images []string
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil, err
	}
	return images, nil
}

func isUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintName
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
