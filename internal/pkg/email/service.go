// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/sirupsen/logrus"
)

const (
	ProviderSMTP = "smtp"
	ProviderLog  = "log"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[EmailType]*template.Template
	logger    logrus.FieldLogger
	// send delivers a rendered email; it defaults to the configured provider
	send func(ctx context.Context, email *Email) error
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger logrus.FieldLogger) *EmailService {
	s := &EmailService{
		config: cfg,
		templates: map[EmailType]*template.Template{
			EmailTypeOrderConfirmation: template.Must(template.New("order_confirmation").Parse(orderConfirmationTemplate)),
			EmailTypeOrderStatusUpdate: template.Must(template.New("order_status_update").Parse(orderStatusTemplate)),
		},
		logger: logger,
	}
	s.send = s.SendEmail
	return s
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s.config.External.Email.Provider {
	case ProviderSMTP:
		return s.sendSMTPEmail(email)
	case ProviderLog, "":
		s.logger.WithFields(logrus.Fields{
			"to":      strings.Join(email.To, ", "),
			"subject": email.Subject,
			"type":    email.Type,
			"bytes":   len(email.HTMLContent),
		}).Info("email not sent, log provider")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendOrderConfirmation tells the buyer their order was placed
func (s *EmailService) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	data := OrderConfirmationData{
		EmailTemplateData: GetBaseTemplateData(s.config.App.Name, s.config.App.BaseURL, o.BuyerName, o.BuyerEmail),
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.CreatedAt.Format("02 Jan 2006"),
		OrderURL:          fmt.Sprintf("%s/orders/%s", s.config.App.BaseURL, o.ID),
		SubTotal:          o.SubTotal.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Shipping:          o.ShippingCharges.StringFixed(2),
		Total:             o.TotalAmount.StringFixed(2),
		PaymentMethod:     paymentMethodLabel(o.PaymentMethod),
		ShippingAddress:   o.ShippingAddress,
	}
	for _, item := range o.Items {
		kind := "Book"
		switch item.ProductType {
		case product.TypePDF:
			kind = "PDF"
			data.HasDownloads = true
		case product.TypeBook:
			data.HasShipment = true
		}
		data.Items = append(data.Items, OrderItem{
			Name:     item.ProductTitle,
			Kind:     kind,
			Quantity: item.Quantity,
			Price:    item.UnitPrice.StringFixed(2),
			Total:    item.TotalPrice.StringFixed(2),
		})
	}

	htmlContent, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	return s.send(ctx, &Email{
		To:          []string{o.BuyerEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": o.OrderNumber,
			"order_total":  data.Total,
		},
	})
}

// SendOrderStatusUpdate tells the buyer their order moved on
func (s *EmailService) SendOrderStatusUpdate(ctx context.Context, o *order.Order) error {
	data := OrderStatusUpdateData{
		EmailTemplateData: GetBaseTemplateData(s.config.App.Name, s.config.App.BaseURL, o.BuyerName, o.BuyerEmail),
		OrderNumber:       o.OrderNumber,
		Status:            string(o.OrderStatus),
		OrderURL:          fmt.Sprintf("%s/orders/%s", s.config.App.BaseURL, o.ID),
	}

	htmlContent, err := s.renderTemplate(EmailTypeOrderStatusUpdate, data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	return s.send(ctx, &Email{
		To:          []string{o.BuyerEmail},
		Subject:     fmt.Sprintf("Order Update - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
		Data: map[string]interface{}{
			"order_number": o.OrderNumber,
			"status":       o.OrderStatus,
		},
	})
}

func paymentMethodLabel(m order.PaymentMethod) string {
	switch m {
	case order.PaymentMethodCOD:
		return "Cash on Delivery"
	case order.PaymentMethodRazorpay:
		return "Online (Razorpay)"
	default:
		return string(m)
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

const orderConfirmationTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #0b3d91;">{{.SiteName}}</h1>
    <p>Hello {{.UserName}},</p>
    <p>Thank you for your order <strong>{{.OrderNumber}}</strong> placed on {{.OrderDate}}.</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
      {{range .Items}}<tr><td>{{.Name}} ({{.Kind}})</td><td align="center">{{.Quantity}}</td><td align="right">&#8377;{{.Price}}</td><td align="right">&#8377;{{.Total}}</td></tr>
      {{end}}
    </table>
    <p>Subtotal: &#8377;{{.SubTotal}}<br>GST: &#8377;{{.Tax}}<br>Shipping: &#8377;{{.Shipping}}<br><strong>Total: &#8377;{{.Total}}</strong></p>
    <p>Payment: {{.PaymentMethod}}</p>
    {{if .HasShipment}}<p>Books ship to: {{.ShippingAddress}}</p>{{end}}
    {{if .HasDownloads}}<p>Your PDFs are available from <a href="{{.OrderURL}}">your order page</a> once payment is confirmed.</p>{{end}}
    <p>Questions? <a href="{{.SupportURL}}">Contact us</a>.</p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
  </div>
</body>
</html>`

const orderStatusTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px;">
  <p>Hello {{.UserName}},</p>
  <p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
  <p><a href="{{.OrderURL}}">View your order</a></p>
  <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
</body>
</html>`
