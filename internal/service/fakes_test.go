package service

import (
	"context"
	"sync"

	"ai-interior-design-be/pkg/events"
	"ai-interior-design-be/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	customer payment.Customer
	pkg      payment.Package
	err      error
}

func (g *fakeGateway) CreateCheckout(_ context.Context, customer payment.Customer, pkg payment.Package) (*payment.Checkout, error) {
	g.customer, g.pkg = customer, pkg
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Checkout{
		OrderId:     "order-1",
		Token:       "snap-token",
		RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token",
	}, nil
}

type sentMail struct {
	kind    string
	to      string
	credits int
	link    string
	gross   decimal.Decimal
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendDesignReady(toEmail, fullName, designLink, resultURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "design_ready", to: toEmail, link: designLink})
	return nil
}

func (m *fakeMailer) SendPurchaseReceipt(toEmail, fullName string, credits int, orderId string, gross decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "receipt", to: toEmail, credits: credits, gross: gross})
	return nil
}

type delivered struct {
	userID    uuid.UUID
	eventType string
	data      map[string]interface{}
}

type fakeDelivery struct {
	mu   sync.Mutex
	sent []delivered
}

func (d *fakeDelivery) Send(userID uuid.UUID, eventType string, data map[string]interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, delivered{userID: userID, eventType: eventType, data: data})
}

type fakeSubscriber struct {
	subject string
	durable string
	handler events.EventHandler
	err     error
}

func (s *fakeSubscriber) Subscribe(subject, durableName string, handler events.EventHandler) error {
	s.subject, s.durable, s.handler = subject, durableName, handler
	return s.err
}
