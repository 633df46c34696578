package service

import (
	"context"
	"errors"
	"testing"

	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/repository/repotest"
	"ai-interior-design-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationHarness struct {
	store    *repotest.Store
	sub      *fakeSubscriber
	delivery *fakeDelivery
	mail     *fakeMailer
	svc      *NotificationService
}

func newNotificationHarness(t *testing.T) *notificationHarness {
	t.Helper()
	h := &notificationHarness{
		store:    repotest.NewStore(),
		sub:      &fakeSubscriber{},
		delivery: &fakeDelivery{},
		mail:     &fakeMailer{},
	}
	h.svc = NewNotificationService(h.store, h.sub, h.delivery, h.mail, "https://app.example.com/", logger.NewNopLogger())
	require.NoError(t, h.svc.Start())
	return h
}

func TestNotificationService_Start(t *testing.T) {
	h := newNotificationHarness(t)
	assert.Equal(t, "events.>", h.sub.subject)
	assert.Equal(t, "design-notifier", h.sub.durable)

	failing := NewNotificationService(h.store, &fakeSubscriber{err: errors.New("nats: no responders")}, h.delivery, h.mail, "", logger.NewNopLogger())
	assert.Error(t, failing.Start())
}

func TestNotificationService_DesignCompleted(t *testing.T) {
	h := newNotificationHarness(t)
	user := h.store.SeedUser(0)
	designId := uuid.New()

	err := h.sub.handler(context.Background(), events.New(events.DesignCompleted, map[string]interface{}{
		"design_id":  designId.String(),
		"user_id":    user.Id.String(),
		"status":     "completed",
		"result_url": "https://blob.example.com/results/x.png",
	}))
	require.NoError(t, err)

	require.Len(t, h.delivery.sent, 1)
	assert.Equal(t, user.Id, h.delivery.sent[0].userID)
	assert.Equal(t, events.DesignCompleted, h.delivery.sent[0].eventType)

	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, "design_ready", h.mail.sent[0].kind)
	assert.Equal(t, user.Email, h.mail.sent[0].to)
	assert.Equal(t, "https://app.example.com/designs/"+designId.String(), h.mail.sent[0].link)
}

func TestNotificationService_CreditsPurchasedFromBus(t *testing.T) {
	h := newNotificationHarness(t)
	user := h.store.SeedUser(15)

	// Delivered through a bus the payload has been through JSON, so numbers are float64.
	err := h.sub.handler(context.Background(), events.New(events.CreditsPurchased, map[string]interface{}{
		"user_id":      user.Id.String(),
		"credits":      float64(15),
		"order_id":     "order-1",
		"gross_amount": "129000.00",
	}))
	require.NoError(t, err)

	require.Len(t, h.mail.sent, 1)
	assert.Equal(t, "receipt", h.mail.sent[0].kind)
	assert.Equal(t, 15, h.mail.sent[0].credits)
	assert.Equal(t, "129000", h.mail.sent[0].gross.String())
}

func TestNotificationService_PushOnlyEvents(t *testing.T) {
	h := newNotificationHarness(t)
	user := h.store.SeedUser(0)

	for _, eventType := range []string{events.DesignSubmitted, events.DesignFailed} {
		require.NoError(t, h.sub.handler(context.Background(), events.New(eventType, map[string]interface{}{
			"user_id": user.Id.String(),
		})))
	}
	assert.Len(t, h.delivery.sent, 2)
	assert.Empty(t, h.mail.sent)
}

func TestNotificationService_EventWithoutUser(t *testing.T) {
	h := newNotificationHarness(t)

	require.NoError(t, h.sub.handler(context.Background(), events.New(events.DesignCompleted, map[string]interface{}{
		"design_id": uuid.New().String(),
	})))
	assert.Empty(t, h.delivery.sent)
	assert.Empty(t, h.mail.sent)
}
