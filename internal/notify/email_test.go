package notify

import (
	"context"
	"testing"

	"github.com/faelmarcondeli/backorder-confirmation/internal/backorder"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	to, subject, html, text string
	sends                   int
}

func (m *captureMailer) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	m.sends++
	m.to, m.subject, m.html, m.text = to, subject, htmlBody, textBody
	return nil
}

func testOrder() *orders.Order {
	return &orders.Order{
		ID:           1001,
		BillingEmail: "cliente@example.com",
		Status:       orders.StatusProcessing,
		Items: []orders.OrderItem{
			{Name: "Tecido Linho Bege", Qty: 12},
			{Name: "Botão Madrepérola", Qty: 4},
		},
	}
}

func TestTriggerRendersAndSends(t *testing.T) {
	m := &captureMailer{}
	e := &EncomendaEmail{SiteName: "Loja", Enabled: true, Mailer: m}

	require.NoError(t, e.Trigger(context.Background(), testOrder()))

	assert.Equal(t, 1, m.sends)
	assert.Equal(t, "cliente@example.com", m.to)
	assert.Equal(t, "[Loja] Encomenda do seu Pedido #1001", m.subject)
	assert.Contains(t, m.html, backorder.NoticeText)
	assert.Contains(t, m.html, "Tecido Linho Bege")
	assert.Contains(t, m.text, backorder.NoticeText)
	assert.Contains(t, m.text, "Botão Madrepérola x4")
}

func TestTriggerDisabled(t *testing.T) {
	m := &captureMailer{}
	e := &EncomendaEmail{SiteName: "Loja", Enabled: false, Mailer: m}
	require.NoError(t, e.Trigger(context.Background(), testOrder()))
	assert.Equal(t, 0, m.sends)
}

func TestTriggerMissingRecipient(t *testing.T) {
	m := &captureMailer{}
	e := &EncomendaEmail{SiteName: "Loja", Enabled: true, Mailer: m}
	o := testOrder()
	o.BillingEmail = ""
	assert.Error(t, e.Trigger(context.Background(), o))
	assert.Equal(t, 0, m.sends)
}
