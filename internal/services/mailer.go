package services

import (
	"bytes"
	"fmt"
	"html/template"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"storefront/internal/config"
	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// Mailer sends transactional mail over SMTP. With no SMTP host configured it
// only logs what it would have sent.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	send   func(*gomail.Message) error
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	m := &Mailer{from: cfg.From}
	if cfg.Host == "" {
		applog.L().Info("mail.disabled")
		return m
	}
	m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	m.send = func(msg *gomail.Message) error { return m.dialer.DialAndSend(msg) }
	return m
}

// Enabled reports whether messages actually leave the process.
func (m *Mailer) Enabled() bool { return m.send != nil }

func (m *Mailer) deliver(to, subject, body string) error {
	if !m.Enabled() {
		applog.L().Info("mail.skipped", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	applog.L().Info("mail.sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<h2>Thanks for your order, {{.FullName}}!</h2>
<p>Order <strong>{{.ID}}</strong> is confirmed and will ship to {{.City}}, {{.Country}}.</p>
<table>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>x{{.Quantity}}</td><td>${{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Subtotal ${{.Subtotal.StringFixed 2}}<br>Tax ${{.Tax.StringFixed 2}}<br>Shipping ${{.Shipping.StringFixed 2}}</p>
<p><strong>Total ${{.TotalAmount.StringFixed 2}}</strong></p>
`))

func (m *Mailer) OrderConfirmation(o domain.Order) error {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, o); err != nil {
		return err
	}
	return m.deliver(o.Email, "Order confirmation "+o.ID, buf.String())
}

func (m *Mailer) Welcome(email string) error {
	return m.deliver(email, "Welcome to the list", `
<h2>You're on the list!</h2>
<p>Thanks for subscribing. We'll let you know about new arrivals and deals.</p>
`)
}
