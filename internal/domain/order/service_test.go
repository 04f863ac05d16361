// internal/domain/order/service_test.go
package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
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
		&product.Category{},
		&product.Product{},
		&Order{},
		&OrderItem{},
		&StatusHistory{},
	))

	return db
}

type stubGateway struct {
	err   error
	calls []uint
}

func (g *stubGateway) ReverseCharge(ctx context.Context, orderID uint) error {
	g.calls = append(g.calls, orderID)
	return g.err
}

type recordedEvent struct {
	email string
	event Event
}

type stubNotifier struct {
	err    error
	events []recordedEvent
}

func (n *stubNotifier) SendOrderEvent(ctx context.Context, customerEmail string, event Event) error {
	n.events = append(n.events, recordedEvent{email: customerEmail, event: event})
	return n.err
}

func newTestOrderService(db *gorm.DB) (*Service, *stubGateway, *stubNotifier) {
	gateway := &stubGateway{}
	notifier := &stubNotifier{}
	return NewService(db, nil, gateway, notifier), gateway, notifier
}

func seedOrder(t *testing.T, db *gorm.DB, status Status, payment PaymentStatus) *Order {
	t.Helper()

	var category product.Category
	err := db.Where("slug = ?", "seed-category").First(&category).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		category = product.Category{Name: "Seed Category", Slug: "seed-category", IsActive: true}
		require.NoError(t, db.Create(&category).Error)
	}

	p := product.Product{
		SKU:           "SKU-ORDER",
		Name:          "Ordered Product",
		Slug:          "ordered-product",
		Price:         2500,
		CategoryID:    category.ID,
		IsActive:      true,
		TrackQuantity: true,
		Quantity:      5,
	}
	require.NoError(t, db.Create(&p).Error)

	o := Order{
		OrderNumber:    "PENDING",
		UserID:         1,
		Email:          "customer@example.com",
		Status:         status,
		PaymentStatus:  payment,
		SubtotalAmount: 5000,
		ShippingAmount: 999,
		TotalAmount:    5999,
		Currency:       "USD",
		Items: []OrderItem{
			{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Quantity: 2, UnitPrice: 2500, TotalPrice: 5000},
		},
	}
	require.NoError(t, db.Create(&o).Error)
	require.NoError(t, db.Model(&o).Update("order_number", GenerateOrderNumber(o.ID)).Error)
	o.OrderNumber = GenerateOrderNumber(o.ID)
	return &o
}

func TestAdvanceFollowsForwardChain(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, notifier := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	updated, err := svc.Advance(context.Background(), o.ID, StatusConfirmed, 42)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.NotNil(t, updated.ConfirmedAt)

	// Confirmation is the only forward step that notifies
	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderConfirmed, notifier.events[0].event.Kind)
	assert.Equal(t, "customer@example.com", notifier.events[0].email)

	updated, err = svc.Advance(context.Background(), o.ID, StatusProcessing, 42)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, updated.Status)
	assert.Len(t, notifier.events, 1)
}

func TestAdvanceRejectsSkippedStep(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, notifier := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	_, err := svc.Advance(context.Background(), o.ID, StatusShipped, 42)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Empty(t, notifier.events)

	var fresh Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	assert.Equal(t, StatusPending, fresh.Status)
}

func TestAdvanceRejectsBackwardStep(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusShipped, PaymentStatusPaid)

	_, err := svc.Advance(context.Background(), o.ID, StatusProcessing, 42)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAdvanceRecordsStatusHistory(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	_, err := svc.Advance(context.Background(), o.ID, StatusConfirmed, 42)
	require.NoError(t, err)

	var history []StatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, StatusConfirmed, history[0].Status)
	assert.Equal(t, AxisFulfillment, history[0].Axis)
	assert.Equal(t, uint(42), history[0].CreatedBy)
}

func TestReportIssueCancelsUnpaidOrderAndRestocks(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, gateway, notifier := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	updated, err := svc.ReportIssue(context.Background(), o.ID, "customer_request", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
	assert.NotNil(t, updated.ClosedAt)

	// No money moved, so the gateway is never called
	assert.Empty(t, gateway.calls)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderCancelled, notifier.events[0].event.Kind)
	assert.Equal(t, "customer_request", notifier.events[0].event.ReasonCode)

	// The 2 ordered units went back on the shelf
	var p product.Product
	require.NoError(t, db.Where("sku = ?", "SKU-ORDER").First(&p).Error)
	assert.Equal(t, 7, p.Quantity)
}

func TestReportIssueRefundsPaidOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, gateway, notifier := newTestOrderService(db)
	o := seedOrder(t, db, StatusProcessing, PaymentStatusPaid)

	updated, err := svc.ReportIssue(context.Background(), o.ID, "damaged_in_transit", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, updated.Status)

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, o.ID, gateway.calls[0])

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventOrderRefunded, notifier.events[0].event.Kind)

	var history []StatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, AxisPayment, history[0].Axis)
}

func TestReportIssueGatewayFailureLeavesOrderUntouched(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, gateway, notifier := newTestOrderService(db)
	gateway.err = errors.New("gateway timeout")
	o := seedOrder(t, db, StatusProcessing, PaymentStatusPaid)

	_, err := svc.ReportIssue(context.Background(), o.ID, "damaged_in_transit", 42)
	require.ErrorIs(t, err, apperrors.ErrRefundFailed)

	var fresh Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	assert.Equal(t, StatusProcessing, fresh.Status)
	assert.Equal(t, PaymentStatusPaid, fresh.PaymentStatus)
	assert.Nil(t, fresh.ClosedAt)

	assert.Empty(t, notifier.events)

	var historyCount int64
	require.NoError(t, db.Model(&StatusHistory{}).Where("order_id = ?", o.ID).Count(&historyCount).Error)
	assert.Equal(t, int64(0), historyCount)
}

func TestReportIssueOnTerminalOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, gateway, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	_, err := svc.ReportIssue(context.Background(), o.ID, "customer_request", 42)
	require.NoError(t, err)

	_, err = svc.ReportIssue(context.Background(), o.ID, "customer_request", 42)
	require.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
	assert.Empty(t, gateway.calls)
}

func TestReportIssueOnDeliveredOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, gateway, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusDelivered, PaymentStatusPaid)

	// Delivered ends the forward chain but issues can still be reported
	updated, err := svc.ReportIssue(context.Background(), o.ID, "damaged_in_transit", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, updated.Status)
	assert.Len(t, gateway.calls, 1)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	require.NoError(t, svc.MarkPaid(context.Background(), o.ID, 1))
	require.NoError(t, svc.MarkPaid(context.Background(), o.ID, 1))

	var fresh Order
	require.NoError(t, db.First(&fresh, o.ID).Error)
	assert.Equal(t, PaymentStatusPaid, fresh.PaymentStatus)

	// Only the first call writes history
	var historyCount int64
	require.NoError(t, db.Model(&StatusHistory{}).Where("order_id = ?", o.ID).Count(&historyCount).Error)
	assert.Equal(t, int64(1), historyCount)
}

func TestGetOrderForUserHidesOtherUsersOrders(t *testing.T) {
	db := setupOrderTestDB(t)
	svc, _, _ := newTestOrderService(db)
	o := seedOrder(t, db, StatusPending, PaymentStatusUnpaid)

	found, err := svc.GetOrderForUser(context.Background(), 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = svc.GetOrderForUser(context.Background(), 2, o.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStatusTransitionTable(t *testing.T) {
	assert.True(t, StatusPending.CanAdvanceTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanAdvanceTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanAdvanceTo(StatusShipped))
	assert.True(t, StatusShipped.CanAdvanceTo(StatusDelivered))

	assert.False(t, StatusPending.CanAdvanceTo(StatusProcessing))
	assert.False(t, StatusDelivered.CanAdvanceTo(StatusPending))
	assert.False(t, StatusCancelled.CanAdvanceTo(StatusConfirmed))
	assert.False(t, StatusRefunded.CanAdvanceTo(StatusConfirmed))

	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())
}
