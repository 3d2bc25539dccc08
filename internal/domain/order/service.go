// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/pricing"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shipping-updates/storefront/internal/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventPublisher delivers domain events to the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// Notifier tells the buyer about their order
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o *Order) error
}

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	publisher EventPublisher
	notifier  Notifier
	logger    logrus.FieldLogger

	newNumber NumberGenerator
	now       func() time.Time
}

// NewService creates a new order service. publisher and notifier may be nil.
func NewService(db *gorm.DB, cfg *config.Config, publisher EventPublisher, notifier Notifier, logger logrus.FieldLogger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		newNumber: NewNumberGenerator(cfg.Checkout.OrderNumberPrefix),
		now:       time.Now,
	}
}

// ItemRequest is one order line as submitted by checkout
type ItemRequest struct {
	ProductID   string          `json:"product_id" binding:"required"`
	ProductType product.Type    `json:"product_type" binding:"required,oneof=book pdf"`
	Title       string          `json:"title" binding:"required,max=255"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CreateOrderRequest is the order creation payload. BuyerID and
// IdempotencyKey come from the authenticated request, not the body.
type CreateOrderRequest struct {
	BuyerID        string `json:"-"`
	IdempotencyKey string `json:"-"`

	BuyerEmail      string `json:"buyer_email" binding:"required,email"`
	BuyerName       string `json:"buyer_name" binding:"required,min=2,max=255"`
	BuyerPhone      string `json:"buyer_phone" binding:"required,len=10,number"`
	ShippingAddress string `json:"shipping_address" binding:"required,min=10"`
	BillingAddress  string `json:"billing_address" binding:"omitempty,min=10"`

	Items []ItemRequest `json:"items" binding:"required,min=1,dive"`

	SubTotal        decimal.Decimal `json:"sub_total"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`

	PaymentMethod     PaymentMethod `json:"payment_method" binding:"omitempty,oneof=razorpay cod"`
	PaymentStatus     PaymentStatus `json:"payment_status" binding:"omitempty,oneof=pending completed failed refunded"`
	RazorpayOrderID   string        `json:"razorpay_order_id" binding:"max=100"`
	RazorpayPaymentID string        `json:"razorpay_payment_id" binding:"max=100"`
	Notes             string        `json:"notes" binding:"max=500"`
}

// Summary returns the request's figures in pricing form
func (r *CreateOrderRequest) Summary() pricing.Summary {
	return pricing.Summary{
		SubTotal:        r.SubTotal,
		Tax:             r.Tax,
		ShippingCharges: r.ShippingCharges,
		Discount:        r.Discount,
		TotalAmount:     r.TotalAmount,
	}
}

// PlacedEvent is published once an order has committed
type PlacedEvent struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	BuyerID       string            `json:"buyer_id"`
	BuyerEmail    string            `json:"buyer_email"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	Items         []PlacedEventItem `json:"items"`
	PlacedAt      time.Time         `json:"placed_at"`
}

// PlacedEventItem is a line of a PlacedEvent
type PlacedEventItem struct {
	ProductID   string       `json:"product_id"`
	ProductType product.Type `json:"product_type"`
	Quantity    int          `json:"quantity"`
}

// CreateOrder validates the payload, then inserts the order header and
// items and decrements book stock in one transaction. A repeated
// idempotency key returns the order created the first time.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Receipt, error) {
	if fields := s.validate(req); len(fields) > 0 {
		return nil, validationError(fields)
	}
	normalize(req)

	if req.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, req.BuyerID, req.IdempotencyKey)
		switch {
		case err == nil:
			return replay(existing), nil
		case !errors.Is(err, ErrNotFound):
			return nil, persistenceError(err)
		}
	}

	attempts := s.config.Checkout.OrderNumberAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		o := s.buildOrder(req)

		err := s.persist(ctx, o)
		if err == nil {
			s.afterCommit(ctx, o)
			return ReceiptFor(o), nil
		}

		var le *lineError
		if errors.As(err, &le) {
			return nil, validationError(map[string]string{le.field(): le.reason})
		}

		if errors.Is(err, ErrStockExceeded) {
			s.logger.WithError(err).WithField("buyer_id", req.BuyerID).Warn("order lost stock race")
			return nil, conflictError(stockMessage(err), err)
		}

		if !isUniqueViolation(err) {
			s.logger.WithError(err).WithField("buyer_id", req.BuyerID).Error("order transaction failed")
			return nil, persistenceError(err)
		}

		if req.IdempotencyKey != "" {
			if existing, ferr := s.findByIdempotencyKey(ctx, req.BuyerID, req.IdempotencyKey); ferr == nil {
				return replay(existing), nil
			}
		}

		s.logger.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"attempt":      attempt,
		}).Warn("order number collision")
		lastErr = err
	}

	return nil, conflictError(MsgOrderNumberTaken,
		fmt.Errorf("%w after %d attempts: %v", ErrOrderNumberTaken, attempts, lastErr))
}

// validate returns field messages for everything wrong with req
func (s *Service) validate(req *CreateOrderRequest) map[string]string {
	fields := map[string]string{}
	if err := validation.Struct(req); err != nil {
		if fe := validation.FieldErrors(err); fe != nil {
			fields = fe
		} else {
			fields["payload"] = err.Error()
		}
	}

	if strings.TrimSpace(req.BuyerID) == "" {
		fields["buyer_id"] = "is required"
	}

	seen := make(map[string]bool, len(req.Items))
	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if seen[item.ProductID] {
			fields[prefix+".product_id"] = "appears more than once"
		}
		seen[item.ProductID] = true

		if !item.UnitPrice.IsPositive() {
			fields[prefix+".unit_price"] = "must be greater than 0"
		}
		if item.ProductType == product.TypePDF && item.Quantity > 1 {
			fields[prefix+".quantity"] = "must be 1 for PDFs"
		}
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.TotalPrice.Equal(expected) {
			fields[prefix+".total_price"] = "must equal unit_price times quantity"
		}
	}

	if !req.SubTotal.IsPositive() {
		fields["sub_total"] = "must be greater than 0"
	}
	if !req.TotalAmount.IsPositive() {
		fields["total_amount"] = "must be greater than 0"
	}

	if len(fields) == 0 {
		expected := pricing.Calculate(itemLines(req.Items))
		if !expected.Equal(req.Summary()) {
			fields["total_amount"] = fmt.Sprintf(
				"summary does not match items (expected sub_total %s, tax %s, shipping_charges %s, total_amount %s)",
				expected.SubTotal.StringFixed(2), expected.Tax.StringFixed(2),
				expected.ShippingCharges.StringFixed(2), expected.TotalAmount.StringFixed(2))
		}
	}

	return fields
}

func normalize(req *CreateOrderRequest) {
	if req.BillingAddress == "" {
		req.BillingAddress = req.ShippingAddress
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentMethodRazorpay
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = PaymentStatusPending
	}
}

func itemLines(items []ItemRequest) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{Type: item.ProductType, UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	return lines
}

func (s *Service) buildOrder(req *CreateOrderRequest) *Order {
	o := &Order{
		OrderNumber:       s.newNumber(s.now()),
		BuyerID:           req.BuyerID,
		BuyerEmail:        strings.TrimSpace(req.BuyerEmail),
		BuyerName:         strings.TrimSpace(req.BuyerName),
		BuyerPhone:        req.BuyerPhone,
		ShippingAddress:   req.ShippingAddress,
		BillingAddress:    req.BillingAddress,
		SubTotal:          req.SubTotal,
		Tax:               req.Tax,
		ShippingCharges:   req.ShippingCharges,
		Discount:          req.Discount,
		TotalAmount:       req.TotalAmount,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     req.PaymentStatus,
		OrderStatus:       OrderStatusPending,
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Notes:             req.Notes,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		o.IdempotencyKey = &key
	}

	o.Items = make([]OrderItem, len(req.Items))
	for i, item := range req.Items {
		maxDownloads := 0
		switch item.ProductType {
		case product.TypePDF:
			maxDownloads = s.config.Checkout.MaxPDFDownloads
		case product.TypeBook:
		}
		o.Items[i] = OrderItem{
			ProductID:    item.ProductID,
			ProductType:  item.ProductType,
			ProductTitle: item.Title,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			MaxDownloads: maxDownloads,
		}
	}
	return o
}

// lineError rejects one order line that disagrees with the catalog
type lineError struct {
	index  int
	column string
	reason string
}

func (e *lineError) Error() string {
	return fmt.Sprintf("%s %s", e.field(), e.reason)
}

func (e *lineError) field() string {
	return fmt.Sprintf("items[%d].%s", e.index, e.column)
}

// checkCatalog compares every line with the product it names
func checkCatalog(tx *gorm.DB, items []OrderItem) error {
	for i, item := range items {
		var p product.Product
		err := tx.Select("id", "type", "price", "is_active").First(&p, "id = ?", item.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return &lineError{index: i, column: "product_id", reason: "is not in the catalog"}
		case err != nil:
			return fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		case !p.IsActive:
			return &lineError{index: i, column: "product_id", reason: "is no longer available"}
		case p.Type != item.ProductType:
			return &lineError{index: i, column: "product_type", reason: "does not match the catalog"}
		case !p.Price.Equal(item.UnitPrice):
			return &lineError{index: i, column: "unit_price", reason: "does not match the catalog price"}
		}
	}
	return nil
}

// persist runs the order transaction. Lines are priced against the
// catalog, and stock is decremented with a single conditional UPDATE per
// book so concurrent checkouts cannot oversell.
func (s *Service) persist(ctx context.Context, o *Order) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := checkCatalog(tx, o.Items); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	if err := tx.Create(&o.Items).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create order items: %w", err)
	}

	for _, item := range o.Items {
		switch item.ProductType {
		case product.TypeBook:
			result := tx.Model(&product.Product{}).
				Where("id = ? AND type = ? AND stock_quantity >= ?", item.ProductID, product.TypeBook, item.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if result.Error != nil {
				tx.Rollback()
				return fmt.Errorf("failed to update stock: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				tx.Rollback()
				return fmt.Errorf("%w for %q", ErrStockExceeded, item.ProductTitle)
			}
		case product.TypePDF:
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return nil
}

func stockMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ErrStockExceeded.Error()); i >= 0 {
		msg = msg[i:]
	}
	return "Sorry, " + msg + ". Please review your cart and try again."
}

func replay(o *Order) *Receipt {
	r := ReceiptFor(o)
	r.Replayed = true
	return r
}

// afterCommit publishes the placed event and queues the confirmation
// email. Neither can undo the order, so failures are only logged.
func (s *Service) afterCommit(ctx context.Context, o *Order) {
	log := s.logger.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
	})
	log.Info("order created")

	if s.publisher != nil {
		event := PlacedEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			BuyerID:       o.BuyerID,
			BuyerEmail:    o.BuyerEmail,
			TotalAmount:   o.TotalAmount,
			PaymentMethod: o.PaymentMethod,
			PaymentStatus: o.PaymentStatus,
			PlacedAt:      o.CreatedAt,
		}
		for _, item := range o.Items {
			event.Items = append(event.Items, PlacedEventItem{
				ProductID:   item.ProductID,
				ProductType: item.ProductType,
				Quantity:    item.Quantity,
			})
		}
		if err := s.publisher.PublishEvent(ctx, s.config.External.Kafka.OrderPlaceTopic, o.ID, event); err != nil {
			log.WithError(err).Error("failed to publish order placed event")
		}
	}

	if s.notifier != nil {
		go func(o Order) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := s.notifier.SendOrderConfirmation(ctx, &o); err != nil {
				log.WithError(err).Warn("failed to send order confirmation")
			}
		}(*o)
	}
}

// findByIdempotencyKey looks a key up among the buyer's own orders only
func (s *Service) findByIdempotencyKey(ctx context.Context, buyerID, key string) (*Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &o, nil
}

// ListRequest represents the order list filters
type ListRequest struct {
	Page          int    `form:"page,default=1" binding:"min=1"`
	Limit         int    `form:"limit,default=20" binding:"min=1,max=100"`
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending completed failed refunded"`
}

// ListResponse represents a page of orders
type ListResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// ListForBuyer returns the buyer's orders, newest first
func (s *Service) ListForBuyer(ctx context.Context, buyerID string, req *ListRequest) (*ListResponse, error) {
	return s.list(ctx, s.db.WithContext(ctx).Where("buyer_id = ?", buyerID), req)
}

// List returns all orders for the admin panel
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	return s.list(ctx, s.db.WithContext(ctx), req)
}

func (s *Service) list(ctx context.Context, query *gorm.DB, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query = query.Model(&Order{})
	if req.Status != "" {
		query = query.Where("order_status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return &ListResponse{
		Orders:     orders,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: int((total + int64(req.Limit) - 1) / int64(req.Limit)),
	}, nil
}

// GetForBuyer returns one of the buyer's orders
func (s *Service) GetForBuyer(ctx context.Context, buyerID, orderID string) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND buyer_id = ?", orderID, buyerID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// Get returns any order by id
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	Notes  string      `json:"notes" binding:"max=500"`
}

// UpdateStatus moves an order along its lifecycle. Cancelling puts book
// stock back.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, req *UpdateStatusRequest) (*Order, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var o Order
	if err := tx.Preload("Items").First(&o, "id = ?", orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !CanTransition(o.OrderStatus, req.Status) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.OrderStatus, req.Status)
	}

	updates := map[string]interface{}{"order_status": req.Status}
	now := s.now()
	switch req.Status {
	case OrderStatusShipped:
		updates["shipped_at"] = now
		o.ShippedAt = &now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
		o.DeliveredAt = &now
	case OrderStatusCancelled:
		for _, item := range o.Items {
			if !item.ProductType.IsPhysical() {
				continue
			}
			if err := tx.Model(&product.Product{}).Where("id = ?", item.ProductID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to restore stock: %w", err)
			}
		}
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
		o.Notes = req.Notes
	}

	if err := tx.Model(&Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	o.OrderStatus = req.Status
	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"status":   req.Status,
	}).Info("order status updated")
	return &o, nil
}

// UpdatePaymentStatus records the outcome of a payment. A completed
// pending order is confirmed at the same time.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status PaymentStatus, razorpayPaymentID string) error {
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	updates := map[string]interface{}{"payment_status": status}
	if razorpayPaymentID != "" {
		updates["razorpay_payment_id"] = razorpayPaymentID
	}
	if status == PaymentStatusCompleted && o.OrderStatus == OrderStatusPending {
		updates["order_status"] = OrderStatusConfirmed
	}

	if err := s.db.WithContext(ctx).Model(&Order{}).Where("id = ?", o.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

// ReconcilePayment applies a gateway notification to the order that was
// charged under razorpayOrderID. Completed orders are left alone.
func (s *Service) ReconcilePayment(ctx context.Context, razorpayOrderID string, status PaymentStatus, razorpayPaymentID string) error {
	var o Order
	if err := s.db.WithContext(ctx).Select("id", "payment_status").
		Where("razorpay_order_id = ?", razorpayOrderID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find order for payment: %w", err)
	}
	if o.PaymentStatus == PaymentStatusCompleted {
		return nil
	}
	return s.UpdatePaymentStatus(ctx, o.ID, status, razorpayPaymentID)
}

// Download is a granted PDF download
type Download struct {
	FileURL   string `json:"file_url"`
	Remaining int    `json:"remaining_downloads"`
}

// RecordDownload spends one of the buyer's downloads of a purchased PDF
func (s *Service) RecordDownload(ctx context.Context, buyerID, orderID, itemID string) (*Download, error) {
	o, err := s.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsPaid() {
		return nil, fmt.Errorf("%w: order is not paid", ErrNotDownloadable)
	}

	var item *OrderItem
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			item = &o.Items[i]
			break
		}
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if item.ProductType != product.TypePDF {
		return nil, ErrNotDownloadable
	}

	result := s.db.WithContext(ctx).Model(&OrderItem{}).
		Where("id = ? AND download_count < max_downloads", item.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to record download: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrDownloadsExceeded
	}

	var p product.Product
	if err := s.db.WithContext(ctx).Select("id", "file_url").First(&p, "id = ?", item.ProductID).Error; err != nil {
		return nil, fmt.Errorf("failed to get product file: %w", err)
	}

	return &Download{
		FileURL:   p.FileURL,
		Remaining: item.MaxDownloads - item.DownloadCount - 1,
	}, nil
}
