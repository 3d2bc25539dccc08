// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the fulfilment status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentMethod represents how the buyer pays
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// Order represents the order header
type Order struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber    string  `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	IdempotencyKey *string `gorm:"uniqueIndex:idx_orders_buyer_idempotency,priority:2;size:128" json:"-"`
	BuyerID        string  `gorm:"not null;size:255;index;uniqueIndex:idx_orders_buyer_idempotency,priority:1" json:"buyer_id"`
	BuyerEmail     string  `gorm:"not null;size:255" json:"buyer_email"`
	BuyerName      string  `gorm:"not null;size:255" json:"buyer_name"`
	BuyerPhone     string  `gorm:"not null;size:10" json:"buyer_phone"`

	ShippingAddress string `gorm:"type:text;not null" json:"shipping_address"`
	BillingAddress  string `gorm:"type:text;not null" json:"billing_address"`

	SubTotal        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"sub_total"`
	Tax             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax"`
	ShippingCharges decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"shipping_charges"`
	Discount        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`

	PaymentMethod     PaymentMethod `gorm:"not null;size:20;default:'razorpay'" json:"payment_method"`
	PaymentStatus     PaymentStatus `gorm:"not null;size:20;default:'pending';index" json:"payment_status"`
	OrderStatus       OrderStatus   `gorm:"not null;size:20;default:'pending';index" json:"order_status"`
	RazorpayOrderID   string        `gorm:"size:100" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string        `gorm:"size:100" json:"razorpay_payment_id,omitempty"`
	Notes             string        `gorm:"size:500" json:"notes,omitempty"`

	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// OrderItem is a line of an order. Title and price are copied from the
// product at checkout and never follow later catalog edits.
type OrderItem struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID       string          `gorm:"not null;size:36;index" json:"order_id"`
	ProductID     string          `gorm:"not null;size:36;index" json:"product_id"`
	ProductType   product.Type    `gorm:"not null;size:10" json:"product_type"`
	ProductTitle  string          `gorm:"not null;size:255" json:"product_title"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	DownloadCount int             `gorm:"not null;default:0" json:"download_count"`
	MaxDownloads  int             `gorm:"not null;default:0" json:"max_downloads"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// BeforeCreate assigns an id when the caller did not
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns an id when the caller did not
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IsPaid reports whether the payment has been captured
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	switch o.OrderStatus {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	default:
		return false
	}
}

// HasPhysicalItems reports whether any line ships
func (o *Order) HasPhysicalItems() bool {
	for _, item := range o.Items {
		if item.ProductType.IsPhysical() {
			return true
		}
	}
	return false
}

// Receipt is what a successful order creation returns
type Receipt struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	// Replayed is set when an idempotency key matched an existing order.
	Replayed bool `json:"-"`
}

// ReceiptFor summarises an order
func ReceiptFor(o *Order) *Receipt {
	return &Receipt{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
	}
}
