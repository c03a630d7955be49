// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

const platformName = "Botscript"

// Template names
const (
	templatePurchaseConfirmation = "purchase_confirmation"
	templateSaleNotification     = "sale_notification"
	templateRefund               = "refund"
)

type NotificationService struct {
	store  repository.Store
	config *config.Config
	send   func(to, subject, body string) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(store repository.Store, config *config.Config) *NotificationService {
	s := &NotificationService{
		store:  store,
		config: config,
	}
	s.send = s.sendEmail
	return s
}

// OrderCompleted emails the buyer and the seller. It runs in the background;
// failures are logged only.
func (s *NotificationService) OrderCompleted(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.SendPurchaseConfirmation(ctx, order); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to send purchase confirmation")
		}
		if err := s.SendSaleNotification(ctx, order); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to send sale notification")
		}
	}()
}

// OrderRefunded emails the buyer in the background.
func (s *NotificationService) OrderRefunded(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.SendRefundNotification(ctx, order); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to send refund notification")
		}
	}()
}

func (s *NotificationService) SendPurchaseConfirmation(ctx context.Context, order *models.Order) error {
	buyer, username, err := s.recipient(ctx, order.BuyerID)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"BuyerName":       username,
		"ProductTitle":    productTitle(order),
		"Amount":          fmt.Sprintf("%.2f", order.Amount),
		"OrderNumber":     order.OrderNumber,
		"LicenseKey":      licenseKey(order),
		"OrderDetailsURL": fmt.Sprintf("%s/dashboard/buyer", s.config.Frontend.BaseURL),
		"PlatformName":    platformName,
	}

	return s.deliver(buyer.Email, templatePurchaseConfirmation, productTitle(order), data)
}

func (s *NotificationService) SendSaleNotification(ctx context.Context, order *models.Order) error {
	seller, username, err := s.recipient(ctx, order.SellerID)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"SellerName":   username,
		"ProductTitle": productTitle(order),
		"Amount":       fmt.Sprintf("%.2f", order.Amount),
		"Commission":   fmt.Sprintf("%.2f", order.Commission),
		"OrderNumber":  order.OrderNumber,
		"PlatformName": platformName,
	}

	return s.deliver(seller.Email, templateSaleNotification, productTitle(order), data)
}

func (s *NotificationService) SendRefundNotification(ctx context.Context, order *models.Order) error {
	buyer, username, err := s.recipient(ctx, order.BuyerID)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"BuyerName":    username,
		"ProductTitle": productTitle(order),
		"Amount":       fmt.Sprintf("%.2f", order.Amount),
		"OrderNumber":  order.OrderNumber,
		"Reason":       order.RefundReason,
		"PlatformName": platformName,
	}

	return s.deliver(buyer.Email, templateRefund, order.OrderNumber, data)
}

func (s *NotificationService) recipient(ctx context.Context, userID uuid.UUID) (*models.User, string, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load recipient: %w", err)
	}

	username := user.Email
	if profile, err := s.store.Profiles().GetByID(ctx, userID); err == nil {
		username = profile.Username
	}
	return user, username, nil
}

func (s *NotificationService) deliver(to, templateType, subjectSuffix string, data map[string]interface{}) error {
	tmpl := s.getEmailTemplate(templateType)
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := tmpl.Subject
	if subjectSuffix != "" {
		subject += " - " + subjectSuffix
	}
	return s.send(to, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email would be sent")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		templatePurchaseConfirmation: {
			Subject: "Purchase Confirmation",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you {{.BuyerName}}!</h2>
	<p>Your purchase of "{{.ProductTitle}}" ({{.Amount}} EUR) is confirmed.</p>
	<p>Order: {{.OrderNumber}}<br>License key: <code>{{.LicenseKey}}</code></p>
	<a href="{{.OrderDetailsURL}}">Open your dashboard</a>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		templateSaleNotification: {
			Subject: "New Sale",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.SellerName}}!</h2>
	<p>"{{.ProductTitle}}" was just sold for {{.Amount}} EUR (commission {{.Commission}} EUR).</p>
	<p>Order: {{.OrderNumber}}</p>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		templateRefund: {
			Subject: "Order Refunded",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.BuyerName}},</h2>
	<p>Your order {{.OrderNumber}} for "{{.ProductTitle}}" has been refunded ({{.Amount}} EUR).</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}

func productTitle(order *models.Order) string {
	if order.Product != nil {
		return order.Product.Title
	}
	return order.ProductID.String()
}

func licenseKey(order *models.Order) string {
	if order.License != nil {
		return order.License.LicenseKey
	}
	return ""
}
