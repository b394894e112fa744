package auction

import (
	"context"
	"fmt"
	"strings"
)

// Credit adds points to a wallet and appends the matching ledger entry,
// atomically. The wallet is created on first credit.
func (service *Service) Credit(ctx context.Context, userID UserID, amount PositivePoints, description string, kind LedgerKind, idempotencyKey string) error {
	operationError := service.creditTx(ctx, userID, amount, description, kind, idempotencyKey)
	service.logOperation(ctx, OperationLog{
		Operation: operationCredit,
		UserID:    userID,
		Amount:    amount.ToPoints(),
		Error:     operationError,
	})
	return operationError
}

func (service *Service) creditTx(ctx context.Context, userID UserID, amount PositivePoints, description string, kind LedgerKind, idempotencyKey string) error {
	if !kind.IsCredit() {
		return fmt.Errorf("%w: %s is not a credit kind", ErrInvalidLedgerKind, kind)
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidIdempotencyKey)
	}
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetOrCreateWallet(ctx, userID); err != nil {
			return err
		}
		if err := transactionStore.AdjustWalletBalance(ctx, userID, amount.ToPoints()); err != nil {
			return err
		}
		return transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
			OwnerID:        userID,
			Kind:           kind,
			AmountPoints:   amount.ToPoints(),
			Description:    description,
			IdempotencyKey: idempotencyKey,
			CreatedUnixUTC: service.nowFn(),
		})
	})
}

// Debit removes points from a wallet and appends a negative ledger entry of
// the given kind. The balance is checked and decremented under the wallet row
// lock, so concurrent debits cannot both succeed past zero.
func (service *Service) Debit(ctx context.Context, userID UserID, amount PositivePoints, description string, kind LedgerKind, idempotencyKey string) error {
	operationError := service.debitTx(ctx, userID, amount, description, kind, idempotencyKey)
	service.logOperation(ctx, OperationLog{
		Operation: operationDebit,
		UserID:    userID,
		Amount:    amount.ToPoints(),
		Error:     operationError,
	})
	return operationError
}

func (service *Service) debitTx(ctx context.Context, userID UserID, amount PositivePoints, description string, kind LedgerKind, idempotencyKey string) error {
	if kind.IsCredit() {
		return fmt.Errorf("%w: %s is not a debit kind", ErrInvalidLedgerKind, kind)
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidIdempotencyKey)
	}
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		return debitWallet(ctx, transactionStore, userID, amount.ToPoints(), description, kind, idempotencyKey, nil, service.nowFn())
	})
}

// debitWallet performs the locked check-and-decrement plus ledger append. It
// expects to run inside a transaction whose listing lock (if any) was taken
// before the wallet lock.
func debitWallet(ctx context.Context, transactionStore Store, userID UserID, amount Points, description string, kind LedgerKind, idempotencyKey string, listingID *ListingID, nowUnixUTC int64) error {
	balance, err := transactionStore.GetWalletForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: balance is %d", ErrInsufficientFunds, balance)
	}
	if err := transactionStore.AdjustWalletBalance(ctx, userID, -amount); err != nil {
		return err
	}
	return transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
		OwnerID:        userID,
		Kind:           kind,
		AmountPoints:   -amount,
		Description:    description,
		ListingID:      listingID,
		IdempotencyKey: idempotencyKey,
		CreatedUnixUTC: nowUnixUTC,
	})
}

// Balance returns the wallet's current point balance.
func (service *Service) Balance(ctx context.Context, userID UserID) (Points, error) {
	return service.store.GetOrCreateWallet(ctx, userID)
}

// ListLedgerEntries lists a wallet's ledger entries before a cutoff time.
func (service *Service) ListLedgerEntries(ctx context.Context, ownerID UserID, beforeUnixUTC int64, limit int) ([]LedgerEntry, error) {
	return service.store.ListLedgerEntries(ctx, ownerID, beforeUnixUTC, limit)
}
