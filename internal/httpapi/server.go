package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run boots the HTTP API over the supplied service and blocks until the
// context is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, service *auction.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	handler := &httpHandler{
		logger:  logger,
		service: service,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("httpapi listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.POST("/accounts", handler.handleRegisterAccount)
	api.POST("/accounts/:user_id/suspend", handler.handleSuspendAccount)

	api.GET("/wallets/:user_id", handler.handleWallet)
	api.POST("/wallets/:user_id/topup", handler.handleTopUp)

	api.POST("/listings", handler.handleCreateListing)
	api.GET("/listings/:listing_id", handler.handleGetListing)
	api.POST("/listings/:listing_id/activate", handler.handleActivateListing)
	api.POST("/listings/:listing_id/cancel", handler.handleCancelListing)
	api.POST("/listings/:listing_id/close", handler.handleForceCloseListing)

	api.GET("/listings/:listing_id/bids", handler.handleListBids)
	api.POST("/listings/:listing_id/bids", handler.handlePlaceBid)

	api.POST("/settlements/run", handler.handleRunSettlement)

	api.GET("/notifications/:user_id", handler.handleListNotifications)
	api.POST("/notifications/:user_id/:notification_id/read", handler.handleMarkNotificationRead)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *auction.Service
}

type registerAccountRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (handler *httpHandler) handleRegisterAccount(ctx *gin.Context) {
	var request registerAccountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	userID, err := auction.NewUserID(request.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	role, err := auction.ParseAccountRole(request.Role)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.RegisterAccount(requestCtx, userID, role); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"user_id": userID.String(), "role": role.String()})
}

type suspendAccountRequest struct {
	Suspended bool `json:"suspended"`
}

func (handler *httpHandler) handleSuspendAccount(ctx *gin.Context) {
	userID, err := auction.NewUserID(ctx.Param("user_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request suspendAccountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.SetAccountSuspended(requestCtx, userID, request.Suspended); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user_id": userID.String(), "suspended": request.Suspended})
}

func (handler *httpHandler) handleWallet(ctx *gin.Context) {
	userID, err := auction.NewUserID(ctx.Param("user_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	balance, err := handler.service.Balance(requestCtx, userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	entries, err := handler.service.ListLedgerEntries(requestCtx, userID, time.Now().UTC().Add(time.Second).Unix(), defaultHistoryLimit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, mapEntryPayload(entry))
	}
	ctx.JSON(http.StatusOK, gin.H{
		"balance_points": balance.Int64(),
		"entries":        payload,
	})
}

type topUpRequest struct {
	AmountPoints   int64  `json:"amount_points"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (handler *httpHandler) handleTopUp(ctx *gin.Context) {
	userID, err := auction.NewUserID(ctx.Param("user_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request topUpRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := auction.NewPositivePoints(request.AmountPoints)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	idempotencyKey := request.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("topup:%s", uuid.NewString())
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.Credit(requestCtx, userID, amount, request.Description, auction.KindTopUp, idempotencyKey); err != nil {
		handler.respondError(ctx, err)
		return
	}
	balance, err := handler.service.Balance(requestCtx, userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance_points": balance.Int64()})
}

type createListingRequest struct {
	SellerID         string   `json:"seller_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Condition        string   `json:"condition"`
	StartingPrice    int64    `json:"starting_price"`
	MinimumIncrement int64    `json:"minimum_increment"`
	Images           []string `json:"images"`
}

func (handler *httpHandler) handleCreateListing(ctx *gin.Context) {
	var request createListingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	sellerID, err := auction.NewUserID(request.SellerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	startingPrice, err := auction.NewPositivePoints(request.StartingPrice)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	minimumIncrement, err := auction.NewPositivePoints(request.MinimumIncrement)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	listingID, err := handler.service.CreateListing(requestCtx, auction.CreateListingInput{
		SellerID:         sellerID,
		Title:            request.Title,
		Description:      request.Description,
		Category:         request.Category,
		Condition:        request.Condition,
		StartingPrice:    startingPrice,
		MinimumIncrement: minimumIncrement,
		Images:           request.Images,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"listing_id": listingID.String()})
}

func (handler *httpHandler) handleGetListing(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	listing, err := handler.service.GetListing(requestCtx, listingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, mapListingPayload(listing))
}

type activateListingRequest struct {
	SellerID     string `json:"seller_id"`
	StartUnixUTC int64  `json:"start_unix_utc"`
	EndUnixUTC   int64  `json:"end_unix_utc"`
}

func (handler *httpHandler) handleActivateListing(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request activateListingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	sellerID, err := auction.NewUserID(request.SellerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.ActivateListing(requestCtx, listingID, sellerID, request.StartUnixUTC, request.EndUnixUTC); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"listing_id": listingID.String()})
}

type cancelListingRequest struct {
	SellerID string `json:"seller_id"`
}

func (handler *httpHandler) handleCancelListing(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request cancelListingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	sellerID, err := auction.NewUserID(request.SellerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.CancelListing(requestCtx, listingID, sellerID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"listing_id": listingID.String(), "status": auction.ListingStatusCancelled.String()})
}

func (handler *httpHandler) handleForceCloseListing(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	outcome, err := handler.service.ForceCloseListing(requestCtx, listingID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"listing_id": listingID.String(), "outcome": string(outcome)})
}

func (handler *httpHandler) handleListBids(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	bids, err := handler.service.ListBids(requestCtx, listingID, defaultBidListLimit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]bidPayload, 0, len(bids))
	for _, bid := range bids {
		payload = append(payload, bidPayload{
			BidID:          bid.BidID.String(),
			BidderID:       bid.BidderID.String(),
			AmountPoints:   bid.AmountPoints.Int64(),
			CreatedUnixUTC: bid.CreatedUnixUTC,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"bids": payload})
}

type placeBidRequest struct {
	BidderID     string `json:"bidder_id"`
	AmountPoints int64  `json:"amount_points"`
}

func (handler *httpHandler) handlePlaceBid(ctx *gin.Context) {
	listingID, err := auction.NewListingID(ctx.Param("listing_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request placeBidRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	bidderID, err := auction.NewUserID(request.BidderID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	amount, err := auction.NewPositivePoints(request.AmountPoints)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	result, err := handler.service.PlaceBid(requestCtx, listingID, bidderID, amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"bid_id":        result.BidID.String(),
		"current_price": result.CurrentPrice.Int64(),
	})
}

func (handler *httpHandler) handleRunSettlement(ctx *gin.Context) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	report, err := handler.service.SettleExpiredAuctions(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	opened, err := handler.service.OpenScheduledListings(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"closed":      report.Closed,
		"underfunded": report.Underfunded,
		"skipped":     report.Skipped,
		"opened":      opened,
	})
}

func (handler *httpHandler) handleListNotifications(ctx *gin.Context) {
	ownerID, err := auction.NewUserID(ctx.Param("user_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	notifications, err := handler.service.ListNotifications(requestCtx, ownerID, defaultNotificationLimit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]notificationPayload, 0, len(notifications))
	for _, notification := range notifications {
		payload = append(payload, mapNotificationPayload(notification))
	}
	ctx.JSON(http.StatusOK, gin.H{"notifications": payload})
}

func (handler *httpHandler) handleMarkNotificationRead(ctx *gin.Context) {
	ownerID, err := auction.NewUserID(ctx.Param("user_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	notificationID := ctx.Param("notification_id")
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), requestTimeout)
	defer cancel()
	if err := handler.service.MarkNotificationRead(requestCtx, ownerID, notificationID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"notification_id": notificationID, "read": true})
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	statusCode, errorCode := mapToHTTPStatus(err)
	if statusCode == http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(statusCode, errorResponse(errorCode, err.Error()))
}

func mapToHTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auction.ErrUnknownAccount),
		errors.Is(err, auction.ErrUnknownListing),
		errors.Is(err, auction.ErrUnknownWallet),
		errors.Is(err, auction.ErrUnknownNotification):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auction.ErrAccountExists):
		return http.StatusConflict, "account_exists"
	case errors.Is(err, auction.ErrAccountSuspended):
		return http.StatusForbidden, "account_suspended"
	case errors.Is(err, auction.ErrSelfBid):
		return http.StatusForbidden, "self_bid"
	case errors.Is(err, auction.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, auction.ErrListingNotActive):
		return http.StatusConflict, "listing_not_active"
	case errors.Is(err, auction.ErrBiddingClosed):
		return http.StatusConflict, "bidding_closed"
	case errors.Is(err, auction.ErrListingHasBids):
		return http.StatusConflict, "listing_has_bids"
	case errors.Is(err, auction.ErrRedundantBid):
		return http.StatusConflict, "redundant_bid"
	case errors.Is(err, auction.ErrDuplicateIdempotencyKey):
		return http.StatusConflict, "duplicate_idempotency_key"
	case errors.Is(err, auction.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient_funds"
	case errors.Is(err, auction.ErrBidBelowMinimum):
		return http.StatusUnprocessableEntity, "bid_below_minimum"
	case errors.Is(err, auction.ErrInvalidUserID),
		errors.Is(err, auction.ErrInvalidListingID),
		errors.Is(err, auction.ErrInvalidBidID),
		errors.Is(err, auction.ErrInvalidAmount),
		errors.Is(err, auction.ErrInvalidAccountRole),
		errors.Is(err, auction.ErrInvalidListingStatus),
		errors.Is(err, auction.ErrInvalidLedgerKind),
		errors.Is(err, auction.ErrInvalidNotificationType),
		errors.Is(err, auction.ErrInvalidIdempotencyKey),
		errors.Is(err, auction.ErrInvalidListingWindow):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

type entryPayload struct {
	EntryID        string `json:"entry_id"`
	Kind           string `json:"kind"`
	AmountPoints   int64  `json:"amount_points"`
	Description    string `json:"description"`
	ListingID      string `json:"listing_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func mapEntryPayload(entry auction.LedgerEntry) entryPayload {
	payload := entryPayload{
		EntryID:        entry.EntryID,
		Kind:           entry.Kind.String(),
		AmountPoints:   entry.AmountPoints.Int64(),
		Description:    entry.Description,
		IdempotencyKey: entry.IdempotencyKey,
		CreatedUnixUTC: entry.CreatedUnixUTC,
	}
	if entry.ListingID != nil {
		payload.ListingID = entry.ListingID.String()
	}
	return payload
}

type bidPayload struct {
	BidID          string `json:"bid_id"`
	BidderID       string `json:"bidder_id"`
	AmountPoints   int64  `json:"amount_points"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

type notificationPayload struct {
	NotificationID string `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	ListingID      string `json:"listing_id,omitempty"`
	Read           bool   `json:"read"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func mapNotificationPayload(notification auction.Notification) notificationPayload {
	payload := notificationPayload{
		NotificationID: notification.NotificationID,
		Type:           notification.Type.String(),
		Title:          notification.Title,
		Message:        notification.Message,
		Read:           notification.Read,
		CreatedUnixUTC: notification.CreatedUnixUTC,
	}
	if notification.ListingID != nil {
		payload.ListingID = notification.ListingID.String()
	}
	return payload
}

func mapListingPayload(listing auction.Listing) gin.H {
	payload := gin.H{
		"listing_id":        listing.ListingID.String(),
		"seller_id":         listing.SellerID.String(),
		"title":             listing.Title,
		"description":       listing.Description,
		"category":          listing.Category,
		"condition":         listing.Condition,
		"starting_price":    listing.StartingPrice.Int64(),
		"minimum_increment": listing.MinimumIncrement.Int64(),
		"current_price":     listing.CurrentPrice.Int64(),
		"bid_count":         listing.BidCount,
		"start_unix_utc":    listing.StartUnixUTC,
		"end_unix_utc":      listing.EndUnixUTC,
		"status":            listing.Status.String(),
		"images":            listing.Images,
	}
	if listing.HighestBidder != nil {
		payload["highest_bidder"] = listing.HighestBidder.String()
	}
	return payload
}
