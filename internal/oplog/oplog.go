// Package oplog adapts the auction operation log to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"go.uber.org/zap"
)

// ZapOperationLogger emits one structured log line per auction operation.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// New wires a ZapOperationLogger.
func New(logger *zap.Logger) *ZapOperationLogger {
	return &ZapOperationLogger{logger: logger}
}

// LogOperation implements auction.OperationLogger.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry auction.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.UserID.String() != "" {
		fields = append(fields, zap.String("user_id", entry.UserID.String()))
	}
	if entry.ListingID.String() != "" {
		fields = append(fields, zap.String("listing_id", entry.ListingID.String()))
	}
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount_points", entry.Amount.Int64()))
	}
	if entry.Outcome != "" {
		fields = append(fields, zap.String("outcome", entry.Outcome))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("auction operation", fields...)
		return
	}
	operationLogger.logger.Info("auction operation", fields...)
}
