package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"ai-recorder-be/internal/config"
	"ai-recorder-be/internal/constant"
	"ai-recorder-be/internal/controller"
	"ai-recorder-be/internal/handler"
	"ai-recorder-be/internal/pkg/logger"
	"ai-recorder-be/internal/pkg/mailer"
	"ai-recorder-be/internal/repository/memory"
	"ai-recorder-be/internal/repository/specification"
	"ai-recorder-be/internal/repository/unitofwork"
	"ai-recorder-be/internal/service"
	"ai-recorder-be/internal/websocket"
	"ai-recorder-be/pkg/media/gateway"
	"ai-recorder-be/pkg/summarize/llm"
	"ai-recorder-be/pkg/vision/realtime"

	pktNats "ai-recorder-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	CaptureController controller.ICaptureController
	SessionController controller.ISessionController
	SearchController  controller.ISearchController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Live Feed
	LiveHandler  *handler.LiveHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	// The archive is optional, everything keeps working off the in-memory
	// collection when no database is configured.
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Capture Collaborators
	visionProvider := realtime.NewClient(cfg.Vision.Endpoint, cfg.Vision.APIKey)
	mediaRouter := gateway.NewRouter(cfg.Capture.MediaGatewayURL)
	summarizer := llm.NewClient(llm.Config{
		Endpoint:          cfg.Summarizer.Endpoint,
		APIKey:            cfg.Summarizer.APIKey,
		Model:             cfg.Summarizer.Model,
		Prompt:            constant.SummarizerSystemPromptV1,
		RequestsPerMinute: cfg.Summarizer.RequestsPerMinute,
	})
	log.Printf("[INFO] Using Summarizer: %s (%s)", cfg.Summarizer.Endpoint, cfg.Summarizer.Model)

	// Initialize In-Memory Session Storage
	sessions := memory.NewSessionCollection()
	hydrateSessions(sessions, uowFactory)

	// 2.5 Infrastructure (Moved up for dependency injection)
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/livefeed.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(cfg.Capture.SummarizeTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Capture.SummarizeTopic,
		sessions,
		uowFactory,
		summarizer,
		natsPub,
	)

	recorderService := service.NewRecorderService(
		visionProvider,
		mediaRouter,
		cfg.Capture.Prompt,
		initCaptureLogger(),
		sessions,
		uowFactory,
		publisherService,
		wsHub,
	)

	sessionService := service.NewSessionService(sessions, uowFactory, natsPub)
	searchService := service.NewSearchService(sessions)

	authService, err := service.NewAuthService(cfg.Auth, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize auth: %v", err)
	}

	// 3.5 Live Feed
	notifService := service.NewNotificationService(natsSub, wsHub, emailService, cfg.SMTP.DigestTo, wsLogger)

	// Start Service (Worker)
	if natsSub != nil {
		go notifService.Start()
	}

	// Handler
	liveHandler := handler.NewLiveHandler(wsHub, wsLogger)

	// 4. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		LiveHandler:       liveHandler,
		WebSocketHub:      wsHub,
		AuthController:    controller.NewAuthController(authService),
		CaptureController: controller.NewCaptureController(recorderService),
		SessionController: controller.NewSessionController(sessionService),
		SearchController:  controller.NewSearchController(searchService),

		ConsumerService: consumerService,
	}
}

// hydrateSessions reloads the most recent archived sessions so the
// collection survives restarts.
func hydrateSessions(sessions *memory.SessionCollection, uowFactory unitofwork.RepositoryFactory) {
	if uowFactory == nil {
		return
	}

	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)
	archived, err := uow.SessionArchiveRepository().FindAll(ctx,
		specification.OrderBy{Field: "started_at", Desc: true},
		specification.Pagination{Limit: 200, Offset: 0},
	)
	if err != nil {
		log.Printf("[WARN] Failed to hydrate sessions from archive: %v", err)
		return
	}

	for _, session := range archived {
		sessions.Save(session)
	}
	log.Printf("[INFO] Hydrated %d sessions from archive", len(archived))
}

func initCaptureLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "capture.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[CAPTURE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
