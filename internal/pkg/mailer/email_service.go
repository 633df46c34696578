package mailer

import (
	"fmt"
	"html"

	"ai-interior-design-be/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendDesignReady(toEmail, fullName, designLink, resultURL string) error
	SendPurchaseReceipt(toEmail, fullName string, credits int, orderId string, gross decimal.Decimal) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(kind, toEmail string, m *gomail.Message) error {
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send email", map[string]interface{}{
			"kind":  kind,
			"to":    toEmail,
			"error": err.Error(),
		})
		return err
	}
	s.logger.Info("MAILER", "Email sent", map[string]interface{}{"kind": kind, "to": toEmail})
	return nil
}

func (s *emailService) SendDesignReady(toEmail, fullName, designLink, resultURL string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your new room is ready, %s!</h2>
			<p><img src="%s" alt="Redesigned room" style="max-width: 100%%; border-radius: 8px;"/></p>
			<a href="%s" style="background-color: #111827; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">View design</a>
		</div>
	`, html.EscapeString(fullName), html.EscapeString(resultURL), html.EscapeString(designLink))

	return s.send("design_ready", toEmail, s.newMessage(toEmail, "Your room redesign is ready", body))
}

func (s *emailService) SendPurchaseReceipt(toEmail, fullName string, credits int, orderId string, gross decimal.Decimal) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thank you, %s</h2>
			<p>%d credits were added to your account.</p>
			<table style="border-collapse: collapse;">
				<tr><td style="padding: 4px 12px 4px 0;">Order</td><td>%s</td></tr>
				<tr><td style="padding: 4px 12px 4px 0;">Amount</td><td>IDR %s</td></tr>
			</table>
		</div>
	`, html.EscapeString(fullName), credits, html.EscapeString(orderId), gross.StringFixed(2))

	return s.send("purchase_receipt", toEmail, s.newMessage(toEmail, "Your credit purchase receipt", body))
}

type noopEmailService struct{}

// NewNoopEmailService is used when SMTP is not configured.
func NewNoopEmailService() IEmailService {
	return noopEmailService{}
}

func (noopEmailService) SendDesignReady(string, string, string, string) error {
	return nil
}

func (noopEmailService) SendPurchaseReceipt(string, string, int, string, decimal.Decimal) error {
	return nil
}
