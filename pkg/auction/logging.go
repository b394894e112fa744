package auction

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing auction operation.
type OperationLog struct {
	Operation string
	UserID    UserID
	ListingID ListingID
	Amount    Points
	Outcome   string
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithListingFee sets the fee charged when a seller activates a listing.
// Without this option activation is free.
func WithListingFee(fee PositivePoints) ServiceOption {
	return func(service *Service) {
		service.listingFee = fee.ToPoints()
	}
}
