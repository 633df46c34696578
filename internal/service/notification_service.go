package service

import (
	"context"
	"fmt"
	"strings"

	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/pkg/mailer"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationDelivery pushes a message to every live connection of a user.
// Implemented by the websocket hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, eventType string, data map[string]interface{})
}

// NotificationService fans domain events out to websockets and email.
type NotificationService struct {
	uowFactory unitofwork.RepositoryFactory
	subscriber events.Subscriber
	delivery   NotificationDelivery
	mailer     mailer.IEmailService
	clientURL  string
	logger     logger.ILogger
}

func NewNotificationService(
	uowFactory unitofwork.RepositoryFactory,
	sub events.Subscriber,
	delivery NotificationDelivery,
	mailer mailer.IEmailService,
	clientURL string,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		uowFactory: uowFactory,
		subscriber: sub,
		delivery:   delivery,
		mailer:     mailer,
		clientURL:  strings.TrimRight(clientURL, "/"),
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() error {
	if err := s.subscriber.Subscribe(events.SubjectPrefix+">", "design-notifier", s.handleEvent); err != nil {
		return fmt.Errorf("failed to start notification subscriber: %w", err)
	}
	s.logger.Info("NotificationService", "Listening to events.>", nil)
	return nil
}

// handleEvent never asks for redelivery: a repeated event would push and mail twice.
func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	userId, err := uuid.Parse(stringFrom(payload["user_id"]))
	if err != nil {
		s.logger.Warn("NotificationService", "Event without user_id", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	s.delivery.Send(userId, event.EventType(), payload)

	switch event.EventType() {
	case events.DesignCompleted:
		s.mailDesignReady(ctx, userId, payload)
	case events.CreditsPurchased:
		s.mailReceipt(ctx, userId, payload)
	}
	return nil
}

func (s *NotificationService) mailDesignReady(ctx context.Context, userId uuid.UUID, payload map[string]interface{}) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return
	}

	link := fmt.Sprintf("%s/designs/%s", s.clientURL, stringFrom(payload["design_id"]))
	if err := s.mailer.SendDesignReady(user.Email, user.FullName, link, stringFrom(payload["result_url"])); err != nil {
		s.logger.Warn("NotificationService", "Design ready email failed", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}
}

func (s *NotificationService) mailReceipt(ctx context.Context, userId uuid.UUID, payload map[string]interface{}) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return
	}

	gross, _ := decimal.NewFromString(stringFrom(payload["gross_amount"]))
	err = s.mailer.SendPurchaseReceipt(user.Email, user.FullName, intFrom(payload["credits"]), stringFrom(payload["order_id"]), gross)
	if err != nil {
		s.logger.Warn("NotificationService", "Receipt email failed", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}
}

func stringFrom(v interface{}) string {
	s, _ := v.(string)
	return s
}

// intFrom accepts both in-process ints and JSON-decoded float64s.
func intFrom(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
