package bootstrap

import (
	"context"
	"fmt"

	"ai-interior-design-be/internal/config"
	"ai-interior-design-be/internal/controller"
	"ai-interior-design-be/internal/handler"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/pkg/mailer"
	"ai-interior-design-be/internal/repository/memory"
	"ai-interior-design-be/internal/repository/unitofwork"
	"ai-interior-design-be/internal/service"
	"ai-interior-design-be/internal/websocket"
	"ai-interior-design-be/pkg/blob"
	"ai-interior-design-be/pkg/events"
	"ai-interior-design-be/pkg/generation"
	"ai-interior-design-be/pkg/ledger"
	pktNats "ai-interior-design-be/pkg/nats"
	"ai-interior-design-be/pkg/payment"
	"ai-interior-design-be/pkg/replicate"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	DesignController  controller.IDesignController
	CreditController  controller.ICreditController
	PaymentController controller.IPaymentController
	WebhookController controller.IWebhookController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	closers []func()
}

// NewContainer wires every component. Background workers (websocket hub, event
// subscriber) are bound to ctx.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	creditLedger := ledger.New(sysLogger)

	var emailService mailer.IEmailService
	if cfg.SMTP.Host == "" {
		sysLogger.Warn("BOOTSTRAP", "SMTP_HOST not set, emails disabled", nil)
		emailService = mailer.NewNoopEmailService()
	} else {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	}

	// 2. Storage
	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s storage: %w", cfg.Storage.Driver, err)
	}

	// 3. Event Bus
	publisher, subscriber := c.newEventBus(cfg, sysLogger)

	// 4. Generation
	if cfg.Replicate.APIToken == "" {
		sysLogger.Warn("BOOTSTRAP", "REPLICATE_API_TOKEN not set, provider calls will be rejected", nil)
	}
	replicateClient := replicate.NewClient(
		cfg.Replicate.BaseURL,
		cfg.Replicate.APIToken,
		cfg.Replicate.ModelVersion,
		cfg.Replicate.Timeout,
	)
	predictionCache := memory.NewPredictionCache(cfg.Replicate.StatusCacheTTL)
	persister := generation.NewPersister(store, cfg.Replicate.ResultFetchTimeout)
	reconciler := generation.NewReconciler(
		uowFactory,
		replicateClient,
		persister,
		creditLedger,
		publisher,
		predictionCache,
		cfg.ReplicateWebhookURL(),
		sysLogger,
	)

	// 5. Payments
	if cfg.Midtrans.ServerKey == "" {
		sysLogger.Warn("BOOTSTRAP", "MIDTRANS_SERVER_KEY not set, payment notifications will be rejected", nil)
	}
	gateway := payment.NewMidtransGateway(cfg.Midtrans.ServerKey, cfg.Midtrans.IsProduction, cfg.PaymentFinishURL())

	// 6. Services
	authService := service.NewAuthService(uowFactory, cfg.App.JwtSecret, cfg.App.SignupCredits, sysLogger)
	designService := service.NewDesignService(uowFactory, creditLedger, reconciler, store, sysLogger)
	creditService := service.NewCreditService(uowFactory, creditLedger, gateway, sysLogger)
	paymentService := service.NewPaymentService(uowFactory, creditLedger, publisher, cfg.Midtrans.ServerKey, sysLogger)

	// 7. Notification System Infrastructure
	rdb := newRedisClient(ctx, cfg.App.RedisURL, sysLogger)
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)

	notifService := service.NewNotificationService(uowFactory, subscriber, wsHub, emailService, cfg.App.ClientURL, wsLogger)
	if err := notifService.Start(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Notification service not started", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// 8. Controllers
	c.AuthController = controller.NewAuthController(authService, cfg.App.JwtSecret)
	c.DesignController = controller.NewDesignController(designService, cfg.App.JwtSecret)
	c.CreditController = controller.NewCreditController(creditService, cfg.App.JwtSecret)
	c.PaymentController = controller.NewPaymentController(paymentService, sysLogger)
	c.WebhookController = controller.NewWebhookController(designService, sysLogger)
	c.NotificationHandler = handler.NewNotificationHandler(wsHub, cfg.App.JwtSecret, wsLogger)
	c.WebSocketHub = wsHub

	return c, nil
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// newEventBus prefers NATS JetStream and falls back to an in-process bus, so a
// missing broker degrades notifications to this instance instead of failing startup.
func (c *Container) newEventBus(cfg *config.Config, log logger.ILogger) (events.Publisher, events.Subscriber) {
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, log)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{
			"error": err.Error(),
		})
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, log)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to NATS Subscriber", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if natsPub != nil && natsSub != nil {
		c.closers = append(c.closers, natsPub.Close, natsSub.Close)
		return natsPub, natsSub
	}
	if natsPub != nil {
		natsPub.Close()
	}
	if natsSub != nil {
		natsSub.Close()
	}

	log.Warn("BOOTSTRAP", "Using in-process event bus", nil)
	bus := events.NewGoChannelBus(log)
	c.closers = append(c.closers, func() { _ = bus.Close() })
	return bus, bus
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	s := cfg.Storage
	switch s.Driver {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Region:        s.S3Region,
			BaseEndpoint:  s.S3BaseEndpoint,
			Bucket:        s.S3Bucket,
			AccessKey:     s.S3AccessKey,
			SecretKey:     s.S3SecretKey,
			PublicBaseURL: s.S3PublicBaseURL,
		})
	case "cloudinary":
		return blob.NewCloudinaryStore(blob.CloudinaryConfig{
			CloudName: s.CloudinaryCloudName,
			APIKey:    s.CloudinaryAPIKey,
			APISecret: s.CloudinaryAPISecret,
		})
	default:
		return blob.NewLocalStore(s.LocalDir, cfg.App.BaseURL), nil
	}
}

func newRedisClient(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return rdb
}
