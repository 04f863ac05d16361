// internal/domain/payment/razorpay_service.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// RazorpayService handles Razorpay payment processing
type RazorpayService struct {
	db         *gorm.DB
	config     *config.Config
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewRazorpayService creates a new Razorpay service
func NewRazorpayService(db *gorm.DB, cfg *config.Config) *RazorpayService {
	return &RazorpayService{
		db:        db,
		config:    cfg,
		keyID:     cfg.External.Razorpay.KeyID,
		keySecret: cfg.External.Razorpay.KeySecret,
		baseURL:   cfg.External.Razorpay.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// razorpayOrder mirrors the gateway's order resource
type razorpayOrder struct {
	ID        string                 `json:"id"`
	Entity    string                 `json:"entity"`
	Amount    int64                  `json:"amount"`
	Currency  string                 `json:"currency"`
	Receipt   string                 `json:"receipt"`
	Status    string                 `json:"status"`
	Notes     map[string]interface{} `json:"notes"`
	CreatedAt int64                  `json:"created_at"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64                  `json:"amount"`
	Currency string                 `json:"currency"`
	Receipt  string                 `json:"receipt"`
	Notes    map[string]interface{} `json:"notes,omitempty"`
}

// InitiationResponse carries what the frontend needs to open the gateway's
// payment widget.
type InitiationResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	KeyID          string `json:"key_id"`
}

// VerificationRequest represents the callback payload the gateway posts back
// after the customer completes payment.
type VerificationRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	GatewaySignature string `json:"razorpay_signature" binding:"required"`
	OrderID          uint   `json:"order_id" binding:"required"`
}

// InitiatePayment creates a gateway order for a pending, unpaid order and
// records the transaction. The returned key ID lets the frontend open the
// payment widget.
func (r *RazorpayService) InitiatePayment(ctx context.Context, userID, orderID uint) (*InitiationResponse, error) {
	var o order.Order
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve order: %v", err)
	}

	if o.IsPaid() {
		return nil, apperrors.Validationf("order %s is already paid", o.OrderNumber)
	}
	if o.Status.IsTerminal() {
		return nil, apperrors.Validationf("order %s is closed", o.OrderNumber)
	}

	gatewayOrder, err := r.createGatewayOrder(ctx, createOrderRequest{
		Amount:   o.TotalAmount,
		Currency: o.Currency,
		Receipt:  o.OrderNumber,
		Notes:    map[string]interface{}{"order_id": fmt.Sprintf("%d", o.ID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	txn := Transaction{
		OrderID:        o.ID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         o.TotalAmount,
		Currency:       o.Currency,
		Status:         TransactionStatusCreated,
	}
	if err := r.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, apperrors.Storagef("failed to record transaction: %v", err)
	}

	return &InitiationResponse{
		GatewayOrderID: gatewayOrder.ID,
		Amount:         o.TotalAmount,
		Currency:       o.Currency,
		Receipt:        o.OrderNumber,
		KeyID:          r.keyID,
	}, nil
}

// VerifyPayment checks the gateway signature and marks the transaction
// captured. Callers flip the order's payment status once this returns nil.
func (r *RazorpayService) VerifyPayment(ctx context.Context, req *VerificationRequest) error {
	if !r.verifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		return apperrors.Validationf("payment signature verification failed")
	}

	var txn Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND gateway_order_id = ?", req.OrderID, req.GatewayOrderID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("transaction for order %d: %w", req.OrderID, apperrors.ErrNotFound)
		}
		return apperrors.Storagef("failed to retrieve transaction: %v", err)
	}

	err = r.db.WithContext(ctx).Model(&txn).Updates(map[string]interface{}{
		"gateway_payment_id": req.GatewayPaymentID,
		"status":             TransactionStatusCaptured,
	}).Error
	if err != nil {
		return apperrors.Storagef("failed to update transaction: %v", err)
	}
	return nil
}

// ReverseCharge refunds the captured transaction for an order. Already
// refunded transactions succeed as a no-op, so retries are safe.
func (r *RazorpayService) ReverseCharge(ctx context.Context, orderID uint) error {
	var txn Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID,
			[]TransactionStatus{TransactionStatusCaptured, TransactionStatusRefunded}).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no captured payment for order %d", orderID)
		}
		return fmt.Errorf("failed to look up transaction: %w", err)
	}

	if txn.Status == TransactionStatusRefunded {
		return nil
	}

	body, err := r.call(ctx, http.MethodPost,
		fmt.Sprintf("/payments/%s/refund", txn.GatewayPaymentID),
		map[string]interface{}{"amount": txn.Amount})
	if err != nil {
		return fmt.Errorf("gateway refund failed: %w", err)
	}

	var refund razorpayRefund
	if err := json.Unmarshal(body, &refund); err != nil {
		return fmt.Errorf("failed to parse refund response: %w", err)
	}

	return r.db.WithContext(ctx).Model(&txn).Updates(map[string]interface{}{
		"status":            TransactionStatusRefunded,
		"gateway_refund_id": refund.ID,
	}).Error
}

// HandlePaymentFailure records a failed payment attempt reported by the
// frontend or a webhook.
func (r *RazorpayService) HandlePaymentFailure(ctx context.Context, orderID uint, reason string) error {
	result := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("order_id = ? AND status = ?", orderID, TransactionStatusCreated).
		Updates(map[string]interface{}{
			"status":         TransactionStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return apperrors.Storagef("failed to record payment failure: %v", result.Error)
	}
	return nil
}

// GetTransactions lists an order's payment attempts, newest first
func (r *RazorpayService) GetTransactions(ctx context.Context, orderID uint) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, apperrors.Storagef("failed to retrieve transactions: %v", err)
	}
	return txns, nil
}

func (r *RazorpayService) createGatewayOrder(ctx context.Context, req createOrderRequest) (*razorpayOrder, error) {
	body, err := r.call(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var gatewayOrder razorpayOrder
	if err := json.Unmarshal(body, &gatewayOrder); err != nil {
		return nil, fmt.Errorf("failed to parse gateway order response: %w", err)
	}
	return &gatewayOrder, nil
}

// verifySignature checks the HMAC-SHA256 the gateway computes over
// "<order_id>|<payment_id>" with the key secret.
func (r *RazorpayService) verifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (r *RazorpayService) call(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, fmt.Errorf("gateway credentials not configured")
	}

	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}
