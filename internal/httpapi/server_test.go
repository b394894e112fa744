package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/auctionhouse/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/auctionhouse/pkg/auction"
	"github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const contentTypeJSON = "application/json"

func newTestRouter(test *testing.T) *gin.Engine {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	store := gormstore.New(db)
	if err := store.Migrate(); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := auction.NewService(store, clock)
	if err != nil {
		test.Fatalf("service: %v", err)
	}
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config: %v", err)
	}
	return setupRouter(cfg, &httpHandler{logger: zap.NewNop(), service: service})
}

func performJSON(test *testing.T, router *gin.Engine, method string, path string, payload any) *httptest.ResponseRecorder {
	test.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			test.Fatalf("encode payload: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &body)
	request.Header.Set("Content-Type", contentTypeJSON)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(test *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	test.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		test.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func errorCode(test *testing.T, recorder *httptest.ResponseRecorder) string {
	test.Helper()
	decoded := decodeBody(test, recorder)
	errorField, ok := decoded["error"].(map[string]any)
	if !ok {
		test.Fatalf("expected error envelope, got %q", recorder.Body.String())
	}
	code, _ := errorField["code"].(string)
	return code
}

func TestHealthz(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test)
	recorder := performJSON(test, router, http.MethodGet, "/healthz", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestBidFlowOverHTTP(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test)

	for _, account := range []map[string]string{
		{"user_id": "seller-1", "role": "seller"},
		{"user_id": "buyer-1", "role": "buyer"},
	} {
		recorder := performJSON(test, router, http.MethodPost, "/api/accounts", account)
		if recorder.Code != http.StatusCreated {
			test.Fatalf("register %v: %d %s", account, recorder.Code, recorder.Body.String())
		}
	}

	recorder := performJSON(test, router, http.MethodPost, "/api/wallets/buyer-1/topup", map[string]any{
		"amount_points": 5_000,
		"description":   "Initial top up",
	})
	if recorder.Code != http.StatusOK {
		test.Fatalf("topup: %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodPost, "/api/listings", map[string]any{
		"seller_id":         "seller-1",
		"title":             "Road bike",
		"starting_price":    1_000,
		"minimum_increment": 100,
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("create listing: %d %s", recorder.Code, recorder.Body.String())
	}
	listingID, _ := decodeBody(test, recorder)["listing_id"].(string)
	if listingID == "" {
		test.Fatalf("expected listing id")
	}

	endUnixUTC := time.Now().UTC().Add(time.Hour).Unix()
	recorder = performJSON(test, router, http.MethodPost, fmt.Sprintf("/api/listings/%s/activate", listingID), map[string]any{
		"seller_id":    "seller-1",
		"end_unix_utc": endUnixUTC,
	})
	if recorder.Code != http.StatusOK {
		test.Fatalf("activate: %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodPost, fmt.Sprintf("/api/listings/%s/bids", listingID), map[string]any{
		"bidder_id":     "buyer-1",
		"amount_points": 1_000,
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("place bid: %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodGet, "/api/listings/"+listingID, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("get listing: %d %s", recorder.Code, recorder.Body.String())
	}
	listing := decodeBody(test, recorder)
	if listing["current_price"].(float64) != 1_000 || listing["highest_bidder"].(string) != "buyer-1" {
		test.Fatalf("unexpected listing payload: %v", listing)
	}

	recorder = performJSON(test, router, http.MethodGet, "/api/notifications/buyer-1", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("notifications: %d %s", recorder.Code, recorder.Body.String())
	}
	notifications, _ := decodeBody(test, recorder)["notifications"].([]any)
	if len(notifications) == 0 {
		test.Fatalf("expected bid notifications")
	}
}

func TestErrorMapping(test *testing.T) {
	test.Parallel()
	router := newTestRouter(test)

	recorder := performJSON(test, router, http.MethodPost, "/api/accounts", map[string]string{
		"user_id": "seller-1", "role": "seller",
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("register: %d", recorder.Code)
	}

	recorder = performJSON(test, router, http.MethodGet, "/api/listings/no-such-listing", nil)
	if recorder.Code != http.StatusNotFound || errorCode(test, recorder) != "not_found" {
		test.Fatalf("expected not_found 404, got %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodPost, "/api/accounts", map[string]string{
		"user_id": "seller-1", "role": "seller",
	})
	if recorder.Code != http.StatusConflict || errorCode(test, recorder) != "account_exists" {
		test.Fatalf("expected account_exists 409, got %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodPost, "/api/accounts", map[string]string{
		"user_id": "admin-1", "role": "admin",
	})
	if recorder.Code != http.StatusBadRequest || errorCode(test, recorder) != "invalid_argument" {
		test.Fatalf("expected invalid_argument 400, got %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = performJSON(test, router, http.MethodPost, "/api/wallets/seller-1/topup", map[string]any{
		"amount_points": -10,
	})
	if recorder.Code != http.StatusBadRequest || errorCode(test, recorder) != "invalid_argument" {
		test.Fatalf("expected invalid_argument 400, got %d %s", recorder.Code, recorder.Body.String())
	}
}
