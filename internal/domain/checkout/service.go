// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/address"
	"github.com/shipping-updates/storefront/internal/domain/cart"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StorageNamespace prefixes every persisted checkout session key
const StorageNamespace = "checkout-storage"

// Store persists JSON session state by session id
type Store interface {
	Load(ctx context.Context, sessionID string, dest interface{}) (bool, error)
	Save(ctx context.Context, sessionID string, value interface{}) error
	Delete(ctx context.Context, sessionID string) error
}

// Carts reads and clears the session's cart
type Carts interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (*cart.Cart, error)
}

// AddressBook looks up the buyer's saved addresses
type AddressBook interface {
	Get(ctx context.Context, ownerID, id string) (*address.Address, error)
}

// Gateway opens and verifies online payments
type Gateway interface {
	KeyID() string
	CreateCharge(ctx context.Context, amount decimal.Decimal, receipt string) (*payment.Charge, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Service drives checkout sessions stored outside the request
type Service struct {
	store     Store
	carts     Carts
	addresses AddressBook
	orders    OrderPlacer
	gateway   Gateway
	config    *config.Config
	logger    logrus.FieldLogger
}

// NewService creates a new checkout service
func NewService(store Store, carts Carts, addresses AddressBook, orders OrderPlacer, gateway Gateway, cfg *config.Config, logger logrus.FieldLogger) *Service {
	return &Service{
		store:     store,
		carts:     carts,
		addresses: addresses,
		orders:    orders,
		gateway:   gateway,
		config:    cfg,
		logger:    logger,
	}
}

// View is a session together with its step presentation
type View struct {
	*Session
	Step StepMetadata `json:"step"`
}

// ViewOf wraps s for a response
func ViewOf(s *Session) *View {
	return &View{Session: s, Step: s.CurrentStep.Metadata()}
}

// SelectAddressRequest picks a saved address
type SelectAddressRequest struct {
	AddressID string `json:"address_id" binding:"required"`
}

// InitiatePaymentRequest chooses how to pay
type InitiatePaymentRequest struct {
	Method order.PaymentMethod `json:"method" binding:"required,oneof=razorpay cod"`
}

// PaymentIntent is what the browser needs to open the payment widget
type PaymentIntent struct {
	Method          order.PaymentMethod `json:"method"`
	RazorpayOrderID string              `json:"razorpay_order_id,omitempty"`
	Amount          int64               `json:"amount"`
	Currency        string              `json:"currency"`
	KeyID           string              `json:"key_id,omitempty"`
}

// ConfirmRequest carries the payment widget's result. It is empty for
// cash on delivery.
type ConfirmRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// Get returns the session's checkout state, or a fresh one
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess := &Session{}
	found, err := s.store.Load(ctx, sessionID, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}
	if !found || sess.CurrentStep == "" {
		return NewSession(), nil
	}
	if sess.CheckoutID == "" {
		sess.CheckoutID = NewSession().CheckoutID
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sessionID string, sess *Session) error {
	if err := s.store.Save(ctx, sessionID, sess); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

// update loads the session, applies fn and saves it when fn succeeds
func (s *Service) update(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return sess, err
	}
	if err := s.save(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectAddress sets the delivery address from the buyer's address book
func (s *Service) SelectAddress(ctx context.Context, sessionID, ownerID, addressID string) (*Session, error) {
	a, err := s.addresses.Get(ctx, ownerID, addressID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.SelectAddress(a)
		return nil
	})
}

// SetBillingAddress sets a separate billing address
func (s *Service) SetBillingAddress(ctx context.Context, sessionID, ownerID, addressID string) (*Session, error) {
	a, err := s.addresses.Get(ctx, ownerID, addressID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.SetBillingAddress(a)
		return nil
	})
}

// ToggleSameAddressForBilling flips billing-follows-shipping
func (s *Service) ToggleSameAddressForBilling(ctx context.Context, sessionID string) (*Session, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.ToggleSameAddressForBilling()
		return nil
	})
}

// Next advances the session against the current cart
func (s *Service) Next(ctx context.Context, sessionID string) (*Session, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sessionID, func(sess *Session) error {
		return sess.Next(c)
	})
}

// Back returns the session to the previous step
func (s *Service) Back(ctx context.Context, sessionID string) (*Session, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		return sess.Back()
	})
}

// ClearError dismisses the order error
func (s *Service) ClearError(ctx context.Context, sessionID string) (*Session, error) {
	return s.update(ctx, sessionID, func(sess *Session) error {
		sess.ClearError()
		return nil
	})
}

// Reset discards the session's checkout state
func (s *Service) Reset(ctx context.Context, sessionID string) (*Session, error) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to reset checkout session: %w", err)
	}
	return NewSession(), nil
}

// InitiatePayment picks the payment method on the payment step. Online
// payment opens a Razorpay order for the reviewed total. A cart changed
// since review goes back to review before anything is charged.
func (s *Service) InitiatePayment(ctx context.Context, sessionID string, req *InitiatePaymentRequest) (*Session, *PaymentIntent, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.CurrentStep != StepPayment {
		return sess, nil, fmt.Errorf("%w: payment from %s", ErrInvalidTransition, sess.CurrentStep)
	}
	if sess.OrderSummary == nil {
		return sess, nil, ErrNotReviewed
	}

	live, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.CartChanged(live) {
		sess.returnToReview(live)
		if err := s.save(ctx, sessionID, sess); err != nil {
			return nil, nil, err
		}
		return sess, nil, ErrCartChanged
	}

	total := sess.OrderSummary.TotalAmount
	intent := &PaymentIntent{
		Method:   req.Method,
		Amount:   payment.ToPaise(total),
		Currency: payment.Currency,
	}

	switch req.Method {
	case order.PaymentMethodRazorpay:
		charge, err := s.gateway.CreateCharge(ctx, total, receiptFor(sess.CheckoutID, sess.ReviewedFingerprint))
		if err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to open payment")
			return sess, nil, err
		}
		sess.RazorpayOrderID = charge.ID
		intent.RazorpayOrderID = charge.ID
		intent.KeyID = s.gateway.KeyID()
	case order.PaymentMethodCOD:
		sess.RazorpayOrderID = ""
	default:
		return sess, nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}

	sess.PaymentMethod = req.Method
	if err := s.save(ctx, sessionID, sess); err != nil {
		return nil, nil, err
	}
	return sess, intent, nil
}

// receiptFor is the merchant reference attached to a Razorpay order.
// Razorpay caps receipts at 40 characters.
func receiptFor(checkoutID, fingerprint string) string {
	receipt := "chk_" + IdempotencyKey(checkoutID, fingerprint)
	if len(receipt) > 40 {
		receipt = receipt[:40]
	}
	return receipt
}

// Confirm verifies the payment and places the order from the reviewed
// snapshot. A verified online payment is placed even if the cart moved on,
// since the snapshot is what was charged. The cart is cleared once the
// order exists.
func (s *Service) Confirm(ctx context.Context, sessionID string, buyer Buyer, req *ConfirmRequest) (*Session, *order.Receipt, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.CurrentStep != StepPayment {
		return sess, nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, sess.CurrentStep)
	}

	pay := Payment{Method: sess.PaymentMethod}
	switch sess.PaymentMethod {
	case order.PaymentMethodRazorpay:
		if req.RazorpayOrderID != sess.RazorpayOrderID ||
			!s.gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
			s.logger.WithFields(logrus.Fields{
				"session_id":        sessionID,
				"razorpay_order_id": req.RazorpayOrderID,
			}).Warn("payment signature rejected")
			sess.OrderError = msgPaymentFailed
			if err := s.save(ctx, sessionID, sess); err != nil {
				return nil, nil, err
			}
			return sess, nil, ErrPaymentVerificationFailed
		}
		pay.Status = order.PaymentStatusCompleted
		pay.RazorpayOrderID = req.RazorpayOrderID
		pay.RazorpayPaymentID = req.RazorpayPaymentID
	case order.PaymentMethodCOD:
		pay.Status = order.PaymentStatusPending
	default:
		return sess, nil, fmt.Errorf("%w: choose a payment method first", ErrInvalidTransition)
	}

	live, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	timeout := s.config.Checkout.OrderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	orderCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	key := IdempotencyKey(sess.CheckoutID, sess.ReviewedFingerprint)
	receipt, placeErr := sess.PlaceOrder(orderCtx, s.orders, live, buyer, pay, key)

	// The session is saved on every outcome so the buyer sees the error.
	if err := s.save(ctx, sessionID, sess); err != nil {
		return nil, nil, err
	}
	if placeErr != nil {
		s.logger.WithError(placeErr).WithField("session_id", sessionID).Warn("checkout did not place order")
		return sess, nil, placeErr
	}

	if _, err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to clear cart after order")
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"order_id":     receipt.OrderID,
		"order_number": receipt.OrderNumber,
		"replayed":     receipt.Replayed,
	}).Info("checkout completed")
	return sess, receipt, nil
}
