package oplog

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogOperationSuccess(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	operationLogger := New(zap.New(core))
	userID, err := auction.NewUserID("user-1")
	if err != nil {
		test.Fatalf("user id: %v", err)
	}

	operationLogger.LogOperation(context.Background(), auction.OperationLog{
		Operation: "place_bid",
		UserID:    userID,
		Amount:    1_000,
		Status:    "ok",
	})

	entries := logs.All()
	if len(entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel {
		test.Fatalf("expected info level, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "place_bid" || fields["user_id"] != "user-1" || fields["amount_points"] != int64(1_000) {
		test.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLogOperationError(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	operationLogger := New(zap.New(core))

	operationLogger.LogOperation(context.Background(), auction.OperationLog{
		Operation: "settle",
		Status:    "error",
		Error:     errors.New("lock contention"),
	})

	entries := logs.All()
	if len(entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		test.Fatalf("expected warn level, got %s", entries[0].Level)
	}
}
