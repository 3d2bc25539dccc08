package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shipping-updates/storefront/internal/infrastructure/database/dbtest"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []PlacedEvent
	fail   error
}

func (r *recordingPublisher) PublishEvent(_ context.Context, topic, _ string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	if e, ok := event.(PlacedEvent); ok {
		r.events = append(r.events, e)
	}
	return r.fail
}

type fixture struct {
	svc       *Service
	db        *gorm.DB
	publisher *recordingPublisher
	book      *product.Product
	pdf       *product.Product
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t, &product.Product{}, &Order{}, &OrderItem{}), stock)
}

func newFixtureOn(t *testing.T, db *gorm.DB, stock int) *fixture {
	t.Helper()

	book := &product.Product{
		Type: product.TypeBook, Title: "Marine Engines and Systems",
		Price: decimal.NewFromInt(300), StockQuantity: stock, IsActive: true,
	}
	pdf := &product.Product{
		Type: product.TypePDF, Title: "MEO Class 2 Orals",
		Price: decimal.NewFromInt(200), IsActive: true, FileURL: "https://files.example/orals.pdf",
	}
	require.NoError(t, db.Create(book).Error)
	require.NoError(t, db.Create(pdf).Error)

	cfg := &config.Config{}
	cfg.Checkout.OrderNumberPrefix = "SU"
	cfg.Checkout.OrderNumberAttempts = 3
	cfg.Checkout.MaxPDFDownloads = 3
	cfg.External.Kafka.OrderPlaceTopic = "order.placed"

	logger, _ := test.NewNullLogger()
	publisher := &recordingPublisher{}
	svc := NewService(db, cfg, publisher, nil, logger)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, db: db, publisher: publisher, book: book, pdf: pdf}
}

func (f *fixture) request(bookQty int) *CreateOrderRequest {
	price := f.book.Price
	line := price.Mul(decimal.NewFromInt(int64(bookQty)))
	sub := line.Add(f.pdf.Price)
	tax := line.Mul(decimal.RequireFromString("0.18")).Round(2)
	shipping := decimal.Zero
	if sub.LessThan(decimal.NewFromInt(500)) {
		shipping = decimal.NewFromInt(50)
	}

	return &CreateOrderRequest{
		BuyerID:         "user_42",
		BuyerEmail:      "cadet@example.com",
		BuyerName:       "Riya Nair",
		BuyerPhone:      "9876543210",
		ShippingAddress: "Riya Nair, 9876543210, 4 Dock Road, Mumbai, Maharashtra, 400001",
		Items: []ItemRequest{
			{ProductID: f.book.ID, ProductType: product.TypeBook, Title: f.book.Title,
				Quantity: bookQty, UnitPrice: price, TotalPrice: line},
			{ProductID: f.pdf.ID, ProductType: product.TypePDF, Title: f.pdf.Title,
				Quantity: 1, UnitPrice: f.pdf.Price, TotalPrice: f.pdf.Price},
		},
		SubTotal:        sub,
		Tax:             tax,
		ShippingCharges: shipping,
		TotalAmount:     sub.Add(tax).Add(shipping),
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var p product.Product
	require.NoError(t, f.db.First(&p, "id = ?", f.book.ID).Error)
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func fixedNumbers(numbers ...string) NumberGenerator {
	i := 0
	return func(time.Time) string {
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	req := f.request(2)
	receipt, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.OrderID)
	assert.Regexp(t, `^SU20240309-\d{4}$`, receipt.OrderNumber)
	assert.True(t, decimal.RequireFromString("908").Equal(receipt.TotalAmount), receipt.TotalAmount.String())
	assert.False(t, receipt.Replayed)

	assert.Equal(t, 3, f.stock(t))
	assert.EqualValues(t, 1, f.count(t, &Order{}))
	assert.EqualValues(t, 2, f.count(t, &OrderItem{}))

	o, err := f.svc.GetForBuyer(ctx, "user_42", receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, o.OrderStatus)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, PaymentMethodRazorpay, o.PaymentMethod)
	assert.Equal(t, o.ShippingAddress, o.BillingAddress)
	require.Len(t, o.Items, 2)
	for _, item := range o.Items {
		switch item.ProductType {
		case product.TypeBook:
			assert.Equal(t, 2, item.Quantity)
			assert.Zero(t, item.MaxDownloads)
		case product.TypePDF:
			assert.Equal(t, 3, item.MaxDownloads)
		}
	}

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, []string{"order.placed"}, f.publisher.topics)
	assert.Equal(t, receipt.OrderID, f.publisher.events[0].OrderID)
	assert.Len(t, f.publisher.events[0].Items, 2)
}

func TestCreateOrderPublishFailureKeepsOrder(t *testing.T) {
	f := newFixture(t, 5)
	f.publisher.fail = errors.New("broker down")

	_, err := f.svc.CreateOrder(context.Background(), f.request(1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &Order{}))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t, 5)

	req := f.request(1)
	req.BuyerEmail = "not-an-email"
	req.BuyerPhone = "123"
	req.Items[1].Quantity = 2
	req.Items[1].TotalPrice = req.Items[1].UnitPrice.Mul(decimal.NewFromInt(2))

	_, err := f.svc.CreateOrder(context.Background(), req)
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindValidation, oe.Kind)
	assert.Equal(t, MsgInvalidPayload, oe.Message)
	assert.False(t, oe.Retryable())
	assert.Contains(t, oe.Fields, "buyer_email")
	assert.Contains(t, oe.Fields, "buyer_phone")
	assert.Contains(t, oe.Fields, "items[1].quantity")

	assert.EqualValues(t, 0, f.count(t, &Order{}))
	assert.Equal(t, 5, f.stock(t))
}

func TestCreateOrderRequiresItemsAndBuyer(t *testing.T) {
	f := newFixture(t, 5)

	req := f.request(1)
	req.Items = nil
	req.BuyerID = ""

	_, err := f.svc.CreateOrder(context.Background(), req)
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Fields, "items")
	assert.Contains(t, oe.Fields, "buyer_id")
}

func TestCreateOrderRejectsBadLineTotals(t *testing.T) {
	f := newFixture(t, 5)

	req := f.request(2)
	req.Items[0].TotalPrice = req.Items[0].UnitPrice

	_, err := f.svc.CreateOrder(context.Background(), req)
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Fields, "items[0].total_price")
}

func TestCreateOrderRejectsTamperedSummary(t *testing.T) {
	f := newFixture(t, 5)

	req := f.request(1)
	req.TotalAmount = req.TotalAmount.Sub(decimal.NewFromInt(1))

	_, err := f.svc.CreateOrder(context.Background(), req)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.EqualValues(t, 0, f.count(t, &Order{}))
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.CreateOrder(context.Background(), f.request(2))
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindConflict, oe.Kind)
	assert.True(t, oe.Retryable())
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Contains(t, oe.Message, f.book.Title)

	assert.Equal(t, 1, f.stock(t))
	assert.EqualValues(t, 0, f.count(t, &Order{}))
	assert.EqualValues(t, 0, f.count(t, &OrderItem{}))
	assert.Empty(t, f.publisher.events)
}

// SQLite shares one connection, so this checks that the loser of the
// conditional stock UPDATE is rejected but runs the two transactions in
// turn. TestConcurrentOrdersForLastCopyPostgres races them for real.
func TestConcurrentOrdersForLastCopy(t *testing.T) {
	raceForLastCopy(t, newFixture(t, 1))
}

func TestConcurrentOrdersForLastCopyPostgres(t *testing.T) {
	db := dbtest.NewPostgres(t, &OrderItem{}, &Order{}, &product.Product{})
	raceForLastCopy(t, newFixtureOn(t, db, 1))
}

func raceForLastCopy(t *testing.T, f *fixture) {
	t.Helper()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.request(1)
			req.BuyerID = []string{"user_a", "user_b"}[i]
			_, errs[i] = f.svc.CreateOrder(context.Background(), req)
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case KindOf(err) == KindConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, 0, f.stock(t))
	assert.EqualValues(t, 1, f.count(t, &Order{}))
}

func TestCreateOrderRetriesOrderNumberCollision(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	f.svc.newNumber = fixedNumbers("SU20240309-1111")
	_, err := f.svc.CreateOrder(ctx, f.request(1))
	require.NoError(t, err)

	f.svc.newNumber = fixedNumbers("SU20240309-1111", "SU20240309-2222")
	receipt, err := f.svc.CreateOrder(ctx, f.request(1))
	require.NoError(t, err)
	assert.Equal(t, "SU20240309-2222", receipt.OrderNumber)
	assert.Equal(t, 3, f.stock(t))
	assert.EqualValues(t, 2, f.count(t, &Order{}))
}

func TestCreateOrderGivesUpAfterCollisions(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	f.svc.newNumber = fixedNumbers("SU20240309-1111")
	_, err := f.svc.CreateOrder(ctx, f.request(1))
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, f.request(1))
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, err, ErrOrderNumberTaken)
	assert.Equal(t, 4, f.stock(t))
	assert.EqualValues(t, 1, f.count(t, &Order{}))
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	req := f.request(1)
	req.IdempotencyKey = "checkout-abc"
	first, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	again := f.request(1)
	again.IdempotencyKey = "checkout-abc"
	second, err := f.svc.CreateOrder(ctx, again)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 4, f.stock(t))
	assert.EqualValues(t, 1, f.count(t, &Order{}))
	assert.Len(t, f.publisher.events, 1)
}

func TestIdempotencyKeyIsPerBuyer(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	req := f.request(1)
	req.IdempotencyKey = "retry-1"
	first, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	other := f.request(1)
	other.BuyerID = "user_7"
	other.IdempotencyKey = "retry-1"
	second, err := f.svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 3, f.stock(t))
	assert.EqualValues(t, 2, f.count(t, &Order{}))
}

func TestCreateOrderChecksCatalog(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	cheap := func() *CreateOrderRequest {
		one := decimal.NewFromInt(1)
		return &CreateOrderRequest{
			BuyerID:         "user_42",
			BuyerEmail:      "cadet@example.com",
			BuyerName:       "Riya Nair",
			BuyerPhone:      "9876543210",
			ShippingAddress: "Digital delivery to cadet@example.com",
			Items: []ItemRequest{{ProductID: f.pdf.ID, ProductType: product.TypePDF, Title: f.pdf.Title,
				Quantity: 1, UnitPrice: one, TotalPrice: one}},
			SubTotal:    one,
			TotalAmount: one,
		}
	}

	_, err := f.svc.CreateOrder(ctx, cheap())
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindValidation, oe.Kind)
	assert.Equal(t, "does not match the catalog price", oe.Fields["items[0].unit_price"])

	wrongType := cheap()
	wrongType.Items[0].ProductID = f.book.ID
	_, err = f.svc.CreateOrder(ctx, wrongType)
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Fields, "items[0].product_type")

	missing := cheap()
	missing.Items[0].ProductID = "no-such-product"
	_, err = f.svc.CreateOrder(ctx, missing)
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "is not in the catalog", oe.Fields["items[0].product_id"])

	require.NoError(t, f.db.Model(&product.Product{}).Where("id = ?", f.book.ID).Update("is_active", false).Error)
	_, err = f.svc.CreateOrder(ctx, f.request(1))
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "is no longer available", oe.Fields["items[0].product_id"])

	assert.EqualValues(t, 0, f.count(t, &Order{}))
	assert.EqualValues(t, 0, f.count(t, &OrderItem{}))
	assert.Equal(t, 5, f.stock(t))
}

func TestListForBuyer(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	for _, buyer := range []string{"user_42", "user_42", "user_7"} {
		req := f.request(1)
		req.BuyerID = buyer
		_, err := f.svc.CreateOrder(ctx, req)
		require.NoError(t, err)
	}

	res, err := f.svc.ListForBuyer(ctx, "user_42", &ListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, 1, res.TotalPages)
	for _, o := range res.Orders {
		assert.Equal(t, "user_42", o.BuyerID)
		assert.Len(t, o.Items, 2)
	}

	_, err = f.svc.GetForBuyer(ctx, "user_7", res.Orders[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := f.svc.List(ctx, &ListRequest{Page: 1, Limit: 2, Status: string(OrderStatusPending)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Len(t, all.Orders, 2)
	assert.Equal(t, 2, all.TotalPages)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	receipt, err := f.svc.CreateOrder(ctx, f.request(2))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, receipt.OrderID, &UpdateStatusRequest{Status: OrderStatusDelivered})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	o, err := f.svc.UpdateStatus(ctx, receipt.OrderID, &UpdateStatusRequest{Status: OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, o.OrderStatus)

	o, err = f.svc.UpdateStatus(ctx, receipt.OrderID, &UpdateStatusRequest{Status: OrderStatusShipped})
	require.NoError(t, err)
	require.NotNil(t, o.ShippedAt)

	_, err = f.svc.UpdateStatus(ctx, receipt.OrderID, &UpdateStatusRequest{Status: OrderStatusCancelled})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "missing", &UpdateStatusRequest{Status: OrderStatusConfirmed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	receipt, err := f.svc.CreateOrder(ctx, f.request(2))
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t))

	o, err := f.svc.UpdateStatus(ctx, receipt.OrderID, &UpdateStatusRequest{Status: OrderStatusCancelled, Notes: "buyer request"})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, o.OrderStatus)
	assert.Equal(t, 5, f.stock(t))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	assert.True(t, CanTransition(OrderStatusShipped, OrderStatusDelivered))
	assert.False(t, CanTransition(OrderStatusDelivered, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusPending))
}

func TestRecordDownload(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	receipt, err := f.svc.CreateOrder(ctx, f.request(1))
	require.NoError(t, err)

	o, err := f.svc.GetForBuyer(ctx, "user_42", receipt.OrderID)
	require.NoError(t, err)
	var pdfItem, bookItem string
	for _, item := range o.Items {
		if item.ProductType == product.TypePDF {
			pdfItem = item.ID
		} else {
			bookItem = item.ID
		}
	}

	_, err = f.svc.RecordDownload(ctx, "user_42", receipt.OrderID, pdfItem)
	assert.ErrorIs(t, err, ErrNotDownloadable, "unpaid orders cannot download")

	require.NoError(t, f.svc.UpdatePaymentStatus(ctx, receipt.OrderID, PaymentStatusCompleted, "pay_123"))
	o, err = f.svc.Get(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, o.OrderStatus)
	assert.Equal(t, "pay_123", o.RazorpayPaymentID)

	_, err = f.svc.RecordDownload(ctx, "user_42", receipt.OrderID, bookItem)
	assert.ErrorIs(t, err, ErrNotDownloadable)

	for remaining := 2; remaining >= 0; remaining-- {
		d, err := f.svc.RecordDownload(ctx, "user_42", receipt.OrderID, pdfItem)
		require.NoError(t, err)
		assert.Equal(t, f.pdf.FileURL, d.FileURL)
		assert.Equal(t, remaining, d.Remaining)
	}

	_, err = f.svc.RecordDownload(ctx, "user_42", receipt.OrderID, pdfItem)
	assert.ErrorIs(t, err, ErrDownloadsExceeded)

	_, err = f.svc.RecordDownload(ctx, "user_7", receipt.OrderID, pdfItem)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: orders.order_number")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_orders_order_number"`)))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

func TestNumberGenerator(t *testing.T) {
	gen := NewNumberGenerator("SU")
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, `^SU20250102-[1-9]\d{3}$`, gen(at))
	}
}

func TestReconcilePayment(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	req := f.request(1)
	req.RazorpayOrderID = "order_rzp_9"
	receipt, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ReconcilePayment(ctx, "order_unknown", PaymentStatusCompleted, "pay_1"), ErrNotFound)

	require.NoError(t, f.svc.ReconcilePayment(ctx, "order_rzp_9", PaymentStatusCompleted, "pay_1"))
	o, err := f.svc.Get(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, OrderStatusConfirmed, o.OrderStatus)

	// A late failure notice does not undo a captured payment.
	require.NoError(t, f.svc.ReconcilePayment(ctx, "order_rzp_9", PaymentStatusFailed, "pay_2"))
	o, err = f.svc.Get(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, "pay_1", o.RazorpayPaymentID)
}
