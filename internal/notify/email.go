package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	html "html/template"
	"net/smtp"
	text "text/template"

	"github.com/faelmarcondeli/backorder-confirmation/internal/backorder"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
)

// Mailer delivers a rendered message. Kept narrow so tests can capture sends.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTmpl = html.Must(html.ParseFS(templateFS, "templates/encomenda.html.tmpl"))
	textTmpl = text.Must(text.ParseFS(templateFS, "templates/encomenda.txt.tmpl"))
)

// EncomendaEmail is the dedicated order-processing email for backordered
// orders, rendered as HTML plus a plain-text alternative.
type EncomendaEmail struct {
	SiteName string
	Enabled  bool
	Mailer   Mailer
}

type emailData struct {
	Heading string
	Notice  string
	Order   *orders.Order
}

func (e *EncomendaEmail) Trigger(ctx context.Context, o *orders.Order) error {
	if !e.Enabled {
		return nil
	}
	if o.BillingEmail == "" {
		return fmt.Errorf("order %d has no billing email", o.ID)
	}

	data := emailData{
		Heading: "Detalhes da sua Encomenda",
		Notice:  backorder.NoticeText,
		Order:   o,
	}
	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return fmt.Errorf("render text: %w", err)
	}

	subject := fmt.Sprintf("[%s] Encomenda do seu Pedido #%d", e.SiteName, o.ID)
	return e.Mailer.Send(ctx, o.BillingEmail, subject, htmlBuf.String(), textBuf.String())
}

// SMTPMailer delivers over plain SMTP as multipart/alternative.
type SMTPMailer struct {
	Addr string
	From string
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	const boundary = "=-backorder-confirmation-alt"
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, b.Bytes())
}
