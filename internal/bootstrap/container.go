package bootstrap

import (
	"context"
	"log"
	"math/rand"
	"time"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/controller"
	"rag-patient-be/internal/pkg/logger"
	"rag-patient-be/internal/pkg/serverutils"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/internal/service"
	"rag-patient-be/internal/settings"
	"rag-patient-be/pkg/dialog/executor"
	"rag-patient-be/pkg/embedding"
	"rag-patient-be/pkg/eval"
	"rag-patient-be/pkg/llm"
	"rag-patient-be/pkg/llm/factory"
	"rag-patient-be/pkg/ratelimit"

	pktNats "rag-patient-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DialogController  controller.IDialogController
	CaseController    controller.ICaseController
	SessionController controller.ISessionController
	AdminController   controller.IAdminController
	HealthController  controller.IHealthController

	// Admission middleware for the turn route
	RateLimitMiddleware fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	turnAuditLogger := logger.NewIsolatedLogger("logs/turns.log")

	// 2. Event Bus (in-process, embedding backfill)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Embedding.OllamaBaseURL != "" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Embedding.OllamaBaseURL,
			cfg.Embedding.OllamaModel,
			cfg.Embedding.Dimension,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Embedding.OllamaModel)
	} else {
		log.Printf("[INFO] No embedding provider configured, vector retrieval degrades to metadata")
	}

	var llmProvider llm.LLMProvider
	llmConfigured := cfg.LLM.APIKey != ""
	if llmConfigured {
		provider, err := factory.NewLLMProvider(
			"deepseek",
			cfg.LLM.BaseURL,
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			time.Duration(cfg.LLM.TimeoutSec)*time.Second,
			cfg.LLM.MaxRetries,
			log.Default(),
		)
		if err != nil {
			log.Printf("[WARN] Failed to initialize LLM Provider: %v. Running deterministic pipeline", err)
			llmConfigured = false
		} else {
			llmProvider = provider
			log.Printf("[INFO] Using LLM Provider: %s", cfg.LLM.Model)
		}
	} else {
		log.Printf("[INFO] No LLM configured, reasoning and generation run their deterministic paths")
	}

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	var rdb *redis.Client
	limiterStore := ratelimit.Store(ratelimit.NewMemoryStore())
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Rate limit buckets stay in memory", err)
		} else {
			limiterStore = ratelimit.NewRedisStore(rdb)
		}
	} else {
		log.Printf("[WARN] No Redis configured, rate limit buckets stay in memory (single replica only)")
	}

	// 5. Runtime settings and pipeline
	settingsStore := settings.NewStore(cfg)
	limiter := ratelimit.NewLimiter(limiterStore, log.Default())

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pipelineExecutor := executor.NewPipelineExecutor(
		embeddingProvider,
		llmProvider,
		rng,
		cfg.Dialog.RiskSticky,
		log.Default(),
	)
	evaluator := eval.NewEvaluator(log.Default())

	caseCache := memory.NewCaseCache()

	// 6. Services
	publisherService := service.NewPublisherService(constant.TopicFragmentEmbed, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.TopicFragmentEmbed,
		uowFactory,
		embeddingProvider,
	)

	caseService := service.NewCaseService(uowFactory, caseCache, publisherService, natsPub)
	sessionService := service.NewSessionService(uowFactory, caseService, natsPub)
	turnService := service.NewTurnService(
		uowFactory,
		caseService,
		pipelineExecutor,
		settingsStore,
		cfg.Dialog,
		natsPub,
		turnAuditLogger,
	)
	reportService := service.NewReportService(uowFactory, caseService, evaluator)
	settingsService := service.NewSettingsService(settingsStore, llmConfigured, sysLogger)

	// 7. Controllers
	return &Container{
		DialogController:  controller.NewDialogController(turnService),
		CaseController:    controller.NewCaseController(caseService, reportService, cfg.App.AdminEnabled),
		SessionController: controller.NewSessionController(sessionService, reportService),
		AdminController:   controller.NewAdminController(settingsService, cfg.App.AdminEnabled),
		HealthController:  controller.NewHealthController(db, rdb, llmConfigured),

		RateLimitMiddleware: serverutils.RateLimitMiddleware(limiter, settingsStore),

		ConsumerService: consumerService,
	}
}
