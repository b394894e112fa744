package auction

const (
	operationRegisterAccount = "register_account"
	operationSuspendAccount  = "suspend_account"
	operationCredit          = "credit"
	operationDebit           = "debit"
	operationCreateListing   = "create_listing"
	operationActivateListing = "activate_listing"
	operationCancelListing   = "cancel_listing"
	operationForceClose      = "force_close"
	operationPlaceBid        = "place_bid"
	operationSettle          = "settle"
	operationOpenScheduled   = "open_scheduled"
	operationNotify          = "notify"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	idempotencyKeyDelimiter     = ":"
	idempotencyPrefixSettlement = "settle"
	idempotencyPrefixListingFee = "listing-fee"

	settlementBatchLimit = 100
	scheduledBatchLimit  = 100
)
