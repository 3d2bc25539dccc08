// internal/domain/checkout/session.go
package checkout

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shipping-updates/storefront/internal/domain/address"
	"github.com/shipping-updates/storefront/internal/domain/cart"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/pricing"
	"golang.org/x/crypto/blake2b"
)

// Step is a checkout page
type Step string

const (
	StepAddress Step = "address"
	StepReview  Step = "review"
	StepPayment Step = "payment"
	StepSuccess Step = "success"
)

// StepMetadata describes how a step is presented
type StepMetadata struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	ShowProgressBar bool   `json:"show_progress_bar"`
}

var stepMetadata = map[Step]StepMetadata{
	StepAddress: {Title: "Delivery Address", Description: "Choose where your books should be delivered", ShowProgressBar: true},
	StepReview:  {Title: "Review Order", Description: "Check your items and order summary", ShowProgressBar: true},
	StepPayment: {Title: "Payment", Description: "Complete your payment securely", ShowProgressBar: true},
	StepSuccess: {Title: "Order Confirmed", Description: "Thank you for your purchase"},
}

// Metadata returns the presentation details of s
func (s Step) Metadata() StepMetadata {
	return stepMetadata[s]
}

// Guard failures. They leave the session unchanged.
var (
	ErrCartEmpty                 = errors.New("your cart is empty")
	ErrShippingAddressRequired   = errors.New("please select a delivery address")
	ErrBillingAddressRequired    = errors.New("please select a billing address")
	ErrInvalidTransition         = errors.New("checkout step change not allowed")
	ErrNotReviewed               = errors.New("order has not been reviewed")
	ErrOrderInProgress           = errors.New("order is already being placed")
	ErrCartChanged               = errors.New("cart changed since review")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
)

const (
	msgCartChanged   = "Your cart has changed since you reviewed it. Please review your order again."
	msgOrderTimeout  = "Placing your order is taking longer than expected. Please try again."
	msgOrderFailed   = "We could not place your order. Please try again."
	msgPaymentFailed = "We could not verify your payment. Please try again or contact support."
)

// Session is one buyer's progress through checkout. It holds the
// snapshot of the cart taken on entering review; the order is built from
// that snapshot, never from the live cart. CheckoutID is new for every
// purchase, so buying the same cart twice gives two orders.
type Session struct {
	CheckoutID string `json:"checkout_id"`

	SelectedAddress          *address.Address `json:"selected_address"`
	BillingAddress           *address.Address `json:"billing_address"`
	UseSameAddressForBilling bool             `json:"use_same_address_for_billing"`

	OrderSummary        *pricing.Summary `json:"order_summary"`
	ReviewedItems       []cart.Item      `json:"reviewed_items,omitempty"`
	ReviewedFingerprint string           `json:"reviewed_fingerprint,omitempty"`

	CurrentStep       Step   `json:"current_step"`
	IsProcessingOrder bool   `json:"is_processing_order"`
	IsCalculating     bool   `json:"is_calculating"`
	OrderError        string `json:"order_error,omitempty"`

	PaymentMethod   order.PaymentMethod `json:"payment_method,omitempty"`
	RazorpayOrderID string              `json:"razorpay_order_id,omitempty"`

	CreatedOrderID     string `json:"created_order_id,omitempty"`
	CreatedOrderNumber string `json:"created_order_number,omitempty"`
}

// NewSession returns a session at the address step
func NewSession() *Session {
	return &Session{
		CheckoutID:               uuid.NewString(),
		UseSameAddressForBilling: true,
		CurrentStep:              StepAddress,
	}
}

// Reset returns the session to its initial state under a new CheckoutID
func (s *Session) Reset() {
	*s = *NewSession()
}

// ClearError dismisses the current order error
func (s *Session) ClearError() {
	s.OrderError = ""
}

// SelectAddress sets the delivery address, mirroring it to billing when
// billing follows shipping.
func (s *Session) SelectAddress(a *address.Address) {
	s.SelectedAddress = copyAddress(a)
	if s.UseSameAddressForBilling {
		s.BillingAddress = copyAddress(a)
	}
}

// SetBillingAddress sets a separate billing address
func (s *Session) SetBillingAddress(a *address.Address) {
	s.BillingAddress = copyAddress(a)
}

// ToggleSameAddressForBilling flips billing-follows-shipping. Turning it
// off keeps the mirrored address; turning it on mirrors again.
func (s *Session) ToggleSameAddressForBilling() {
	s.UseSameAddressForBilling = !s.UseSameAddressForBilling
	if s.UseSameAddressForBilling {
		s.BillingAddress = copyAddress(s.SelectedAddress)
	}
}

func copyAddress(a *address.Address) *address.Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Next advances one step. Leaving the address step checks the cart and
// addresses and snapshots the cart. The payment step only advances
// through PlaceOrder.
func (s *Session) Next(c *cart.Cart) error {
	switch s.CurrentStep {
	case StepAddress:
		if err := s.checkAddressStep(c); err != nil {
			return err
		}
		s.snapshot(c)
		s.CurrentStep = StepReview
	case StepReview:
		if s.OrderSummary == nil || len(s.ReviewedItems) == 0 {
			return ErrNotReviewed
		}
		s.CurrentStep = StepPayment
	case StepPayment, StepSuccess:
		return fmt.Errorf("%w: from %s", ErrInvalidTransition, s.CurrentStep)
	default:
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, s.CurrentStep)
	}
	s.OrderError = ""
	return nil
}

// Back returns to the previous step
func (s *Session) Back() error {
	if s.IsProcessingOrder {
		return ErrOrderInProgress
	}
	switch s.CurrentStep {
	case StepReview:
		s.CurrentStep = StepAddress
	case StepPayment:
		s.CurrentStep = StepReview
		s.RazorpayOrderID = ""
	case StepAddress, StepSuccess:
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, s.CurrentStep)
	default:
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, s.CurrentStep)
	}
	return nil
}

func (s *Session) checkAddressStep(c *cart.Cart) error {
	if c == nil || c.IsEmpty() {
		return ErrCartEmpty
	}
	if !c.HasPhysicalItems() {
		return nil
	}
	if s.SelectedAddress == nil {
		return ErrShippingAddressRequired
	}
	if !s.UseSameAddressForBilling && s.BillingAddress == nil {
		return ErrBillingAddressRequired
	}
	return nil
}

func (s *Session) snapshot(c *cart.Cart) {
	s.IsCalculating = true
	items := c.Snapshot()
	summary := pricing.Calculate(cart.Lines(items))
	s.ReviewedItems = items
	s.OrderSummary = &summary
	s.ReviewedFingerprint = cart.Fingerprint(items)
	s.IsCalculating = false
}

// HasPhysicalItems reports whether the reviewed items include a book
func (s *Session) HasPhysicalItems() bool {
	for _, item := range s.ReviewedItems {
		if item.Type.IsPhysical() {
			return true
		}
	}
	return false
}

// Buyer is the authenticated identity placing the order
type Buyer struct {
	ID    string
	Email string
	Name  string
	Phone string
}

// Payment describes how the order was paid
type Payment struct {
	Method            order.PaymentMethod
	Status            order.PaymentStatus
	RazorpayOrderID   string
	RazorpayPaymentID string
}

// OrderPlacer runs the order creation transaction
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req *order.CreateOrderRequest) (*order.Receipt, error)
}

// IdempotencyKey derives the order idempotency key for one checkout's
// reviewed cart.
func IdempotencyKey(checkoutID, fingerprint string) string {
	sum := blake2b.Sum256([]byte(checkoutID + ":" + fingerprint))
	return hex.EncodeToString(sum[:])
}

// CartChanged reports whether live no longer matches the reviewed snapshot
func (s *Session) CartChanged(live *cart.Cart) bool {
	return live == nil || live.Fingerprint() != s.ReviewedFingerprint
}

// returnToReview re-snapshots live and sends the buyer back to review
func (s *Session) returnToReview(live *cart.Cart) {
	if live != nil && !live.IsEmpty() {
		s.snapshot(live)
	}
	s.CurrentStep = StepReview
	s.RazorpayOrderID = ""
	s.OrderError = msgCartChanged
}

// PlaceOrder submits the reviewed snapshot. When the live cart no longer
// matches the snapshot the session goes back to review with a fresh
// snapshot instead, unless the snapshot has already been paid for.
// Failures keep the session on the payment step with OrderError set.
func (s *Session) PlaceOrder(ctx context.Context, placer OrderPlacer, live *cart.Cart, buyer Buyer, pay Payment, idempotencyKey string) (*order.Receipt, error) {
	if s.CurrentStep != StepPayment {
		return nil, fmt.Errorf("%w: place order from %s", ErrInvalidTransition, s.CurrentStep)
	}
	if s.IsProcessingOrder {
		return nil, ErrOrderInProgress
	}
	if s.OrderSummary == nil || len(s.ReviewedItems) == 0 {
		return nil, ErrNotReviewed
	}

	if pay.Status != order.PaymentStatusCompleted && s.CartChanged(live) {
		s.returnToReview(live)
		return nil, ErrCartChanged
	}

	s.IsProcessingOrder = true
	s.OrderError = ""

	receipt, err := placer.CreateOrder(ctx, s.orderRequest(buyer, pay, idempotencyKey))
	s.IsProcessingOrder = false
	if err != nil {
		s.OrderError = orderErrorMessage(ctx, err)
		return nil, err
	}

	s.CreatedOrderID = receipt.OrderID
	s.CreatedOrderNumber = receipt.OrderNumber
	s.CurrentStep = StepSuccess
	return receipt, nil
}

func orderErrorMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return msgOrderTimeout
	}
	var oe *order.Error
	if errors.As(err, &oe) {
		if oe.Kind == order.KindPersistence {
			return msgOrderFailed
		}
		return oe.Message
	}
	return msgOrderFailed
}

func (s *Session) orderRequest(buyer Buyer, pay Payment, idempotencyKey string) *order.CreateOrderRequest {
	shipping := address.Format(nil)
	if s.HasPhysicalItems() || s.SelectedAddress != nil {
		shipping = address.Format(s.SelectedAddress)
	}
	billing := shipping
	if !s.UseSameAddressForBilling && s.BillingAddress != nil {
		billing = address.Format(s.BillingAddress)
	}

	name, phone := buyer.Name, buyer.Phone
	if s.SelectedAddress != nil {
		if name == "" {
			name = s.SelectedAddress.FullName
		}
		if phone == "" {
			phone = s.SelectedAddress.Phone
		}
	}

	items := make([]order.ItemRequest, len(s.ReviewedItems))
	for i, item := range s.ReviewedItems {
		items[i] = order.ItemRequest{
			ProductID:   item.ProductID,
			ProductType: item.Type,
			Title:       item.Title,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.LineTotal(),
		}
	}

	return &order.CreateOrderRequest{
		BuyerID:           buyer.ID,
		IdempotencyKey:    idempotencyKey,
		BuyerEmail:        buyer.Email,
		BuyerName:         name,
		BuyerPhone:        phone,
		ShippingAddress:   shipping,
		BillingAddress:    billing,
		Items:             items,
		SubTotal:          s.OrderSummary.SubTotal,
		Tax:               s.OrderSummary.Tax,
		ShippingCharges:   s.OrderSummary.ShippingCharges,
		Discount:          s.OrderSummary.Discount,
		TotalAmount:       s.OrderSummary.TotalAmount,
		PaymentMethod:     pay.Method,
		PaymentStatus:     pay.Status,
		RazorpayOrderID:   pay.RazorpayOrderID,
		RazorpayPaymentID: pay.RazorpayPaymentID,
	}
}
