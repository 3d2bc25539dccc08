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
	"strings"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Currency is the only currency the store charges in
const Currency = "INR"

var (
	ErrNotConfigured = errors.New("razorpay credentials not configured")
	ErrInvalidAmount = errors.New("charge amount must be positive")
)

// RazorpayService talks to the Razorpay orders API
type RazorpayService struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	logger        logrus.FieldLogger
}

// NewRazorpayService creates a new Razorpay service
func NewRazorpayService(cfg *config.Config, logger logrus.FieldLogger) *RazorpayService {
	return &RazorpayService{
		keyID:         cfg.External.Razorpay.KeyID,
		keySecret:     cfg.External.Razorpay.KeySecret,
		webhookSecret: cfg.External.Razorpay.WebhookSecret,
		baseURL:       strings.TrimRight(cfg.External.Razorpay.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.External.Razorpay.Timeout,
		},
		logger: logger,
	}
}

// Charge is a Razorpay order awaiting payment
type Charge struct {
	ID        string                 `json:"id"`
	Entity    string                 `json:"entity"`
	Amount    int64                  `json:"amount"`
	Currency  string                 `json:"currency"`
	Receipt   string                 `json:"receipt"`
	Status    string                 `json:"status"`
	Notes     map[string]interface{} `json:"notes,omitempty"`
	CreatedAt int64                  `json:"created_at"`
}

type createChargeRequest struct {
	Amount   int64                  `json:"amount"`
	Currency string                 `json:"currency"`
	Receipt  string                 `json:"receipt"`
	Notes    map[string]interface{} `json:"notes,omitempty"`
}

// KeyID is the public key the browser checkout widget needs
func (r *RazorpayService) KeyID() string {
	return r.keyID
}

// ToPaise converts rupees to the integer minor units Razorpay expects
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CreateCharge opens a Razorpay order for amount rupees
func (r *RazorpayService) CreateCharge(ctx context.Context, amount decimal.Decimal, receipt string) (*Charge, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	req := createChargeRequest{
		Amount:   ToPaise(amount),
		Currency: Currency,
		Receipt:  receipt,
	}

	body, err := r.makeAPICall(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create Razorpay order: %w", err)
	}

	var charge Charge
	if err := json.Unmarshal(body, &charge); err != nil {
		return nil, fmt.Errorf("failed to parse Razorpay order response: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"razorpay_order_id": charge.ID,
		"amount":            charge.Amount,
		"receipt":           receipt,
	}).Info("razorpay order created")
	return &charge, nil
}

// VerifySignature checks the checkout widget's signature over
// "<order id>|<payment id>"
func (r *RazorpayService) VerifySignature(orderID, paymentID, signature string) bool {
	if r.keySecret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	return validMAC(r.keySecret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw body.
// Webhooks are refused while no webhook secret is configured.
func (r *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if r.webhookSecret == "" || signature == "" {
		return false
	}
	return validMAC(r.webhookSecret, body, signature)
}

func validMAC(secret string, message []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the part of a Razorpay webhook the store reads
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// makeAPICall makes HTTP calls to Razorpay API
func (r *RazorpayService) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, ErrNotConfigured
	}

	var reqBody io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		r.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Warn("razorpay API call failed")
		return nil, fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
