// internal/domain/payment/razorpay_service_test.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&order.Order{},
		&order.OrderItem{},
		&Transaction{},
	))

	return db
}

// fakeGateway answers order creation and refund calls the way the real
// gateway does, and counts refund requests.
type fakeGateway struct {
	server      *httptest.Server
	refundCalls int
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":       "order_fake123",
				"entity":   "order",
				"amount":   5999,
				"currency": "USD",
				"status":   "created",
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refund"):
			g.refundCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "rfnd_fake123",
				"entity": "refund",
				"status": "processed",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(g.server.Close)
	return g
}

func newTestPaymentService(t *testing.T, db *gorm.DB) (*RazorpayService, *fakeGateway) {
	t.Helper()

	gateway := newFakeGateway(t)
	cfg := &config.Config{
		External: config.ExternalConfig{
			Razorpay: config.RazorpayConfig{
				KeyID:     "rzp_test_key",
				KeySecret: "rzp_test_secret",
				BaseURL:   gateway.server.URL,
			},
		},
	}
	return NewRazorpayService(db, cfg), gateway
}

func seedPaymentOrder(t *testing.T, db *gorm.DB, status order.Status, payment order.PaymentStatus) *order.Order {
	t.Helper()

	o := order.Order{
		OrderNumber:    "ORD-20260101-00001",
		UserID:         1,
		Email:          "customer@example.com",
		Status:         status,
		PaymentStatus:  payment,
		SubtotalAmount: 5000,
		ShippingAmount: 999,
		TotalAmount:    5999,
		Currency:       "USD",
	}
	require.NoError(t, db.Create(&o).Error)
	return &o
}

func signPayload(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitiatePaymentCreatesTransaction(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusPending, order.PaymentStatusUnpaid)

	resp, err := svc.InitiatePayment(context.Background(), 1, o.ID)
	require.NoError(t, err)

	assert.Equal(t, "order_fake123", resp.GatewayOrderID)
	assert.Equal(t, int64(5999), resp.Amount)
	assert.Equal(t, "rzp_test_key", resp.KeyID)

	var txn Transaction
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&txn).Error)
	assert.Equal(t, TransactionStatusCreated, txn.Status)
	assert.Equal(t, "order_fake123", txn.GatewayOrderID)
}

func TestInitiatePaymentRejectsWrongOwner(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusPending, order.PaymentStatusUnpaid)

	_, err := svc.InitiatePayment(context.Background(), 2, o.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInitiatePaymentRejectsPaidOrder(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusConfirmed, order.PaymentStatusPaid)

	_, err := svc.InitiatePayment(context.Background(), 1, o.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInitiatePaymentRejectsClosedOrder(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusCancelled, order.PaymentStatusUnpaid)

	_, err := svc.InitiatePayment(context.Background(), 1, o.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestVerifyPaymentChecksSignature(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusPending, order.PaymentStatusUnpaid)

	_, err := svc.InitiatePayment(context.Background(), 1, o.ID)
	require.NoError(t, err)

	// A forged signature is rejected and the transaction untouched
	err = svc.VerifyPayment(context.Background(), &VerificationRequest{
		GatewayOrderID:   "order_fake123",
		GatewayPaymentID: "pay_abc",
		GatewaySignature: "forged",
		OrderID:          o.ID,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var txn Transaction
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&txn).Error)
	assert.Equal(t, TransactionStatusCreated, txn.Status)

	err = svc.VerifyPayment(context.Background(), &VerificationRequest{
		GatewayOrderID:   "order_fake123",
		GatewayPaymentID: "pay_abc",
		GatewaySignature: signPayload("rzp_test_secret", "order_fake123", "pay_abc"),
		OrderID:          o.ID,
	})
	require.NoError(t, err)

	require.NoError(t, db.Where("order_id = ?", o.ID).First(&txn).Error)
	assert.Equal(t, TransactionStatusCaptured, txn.Status)
	assert.Equal(t, "pay_abc", txn.GatewayPaymentID)
}

func TestReverseChargeIsIdempotent(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, gateway := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusProcessing, order.PaymentStatusPaid)

	txn := Transaction{
		OrderID:          o.ID,
		GatewayOrderID:   "order_fake123",
		GatewayPaymentID: "pay_abc",
		Amount:           5999,
		Currency:         "USD",
		Status:           TransactionStatusCaptured,
	}
	require.NoError(t, db.Create(&txn).Error)

	require.NoError(t, svc.ReverseCharge(context.Background(), o.ID))
	assert.Equal(t, 1, gateway.refundCalls)

	var fresh Transaction
	require.NoError(t, db.First(&fresh, txn.ID).Error)
	assert.Equal(t, TransactionStatusRefunded, fresh.Status)
	assert.Equal(t, "rfnd_fake123", fresh.GatewayRefundID)

	// Retrying an already-reversed charge succeeds without another call
	require.NoError(t, svc.ReverseCharge(context.Background(), o.ID))
	assert.Equal(t, 1, gateway.refundCalls)
}

func TestReverseChargeWithoutCapturedPayment(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusPending, order.PaymentStatusUnpaid)

	require.Error(t, svc.ReverseCharge(context.Background(), o.ID))
}

func TestHandlePaymentFailure(t *testing.T) {
	db := setupPaymentTestDB(t)
	svc, _ := newTestPaymentService(t, db)
	o := seedPaymentOrder(t, db, order.StatusPending, order.PaymentStatusUnpaid)

	_, err := svc.InitiatePayment(context.Background(), 1, o.ID)
	require.NoError(t, err)

	require.NoError(t, svc.HandlePaymentFailure(context.Background(), o.ID, "card_declined"))

	var txn Transaction
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&txn).Error)
	assert.Equal(t, TransactionStatusFailed, txn.Status)
	assert.Equal(t, "card_declined", txn.FailureReason)
}
