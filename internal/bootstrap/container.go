package bootstrap

import (
	"context"
	"log"

	"ai-marketplace-be/internal/config"
	"ai-marketplace-be/internal/controller"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/memory"
	"ai-marketplace-be/internal/repository/unitofwork"
	"ai-marketplace-be/internal/service"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/embedding/jina"
	"ai-marketplace-be/pkg/llm/factory"
	"ai-marketplace-be/pkg/rag/rank"
	"ai-marketplace-be/pkg/rag/retrieval"
	"ai-marketplace-be/pkg/search"
	"ai-marketplace-be/pkg/usage"

	pktNats "ai-marketplace-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared facades
	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}
	// Provider outages degrade to random vectors instead of failing writes
	embeddingProvider = embedding.NewFallbackProvider(embeddingProvider, cfg.Ai.EmbeddingDimension, sysLogger)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// In-Memory session filter state
	filterStateRepo := memory.NewFilterStateRepository()

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

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
		rdb = nil
	}
	usageTracker := usage.NewTracker(rdb)

	searchExecutor := search.NewHTTPExecutor(cfg.App.SearchServiceURL, cfg.Keys.SearchService)

	// 5. Retrieval pipeline
	rankConfig := rank.Config{
		SimilarityLow:  cfg.Retrieval.SimilarityLow,
		SimilarityMid:  cfg.Retrieval.SimilarityMid,
		SimilarityHigh: cfg.Retrieval.SimilarityHigh,
		ConfidenceGate: cfg.Retrieval.ConfidenceGate,
		Limit:          cfg.Retrieval.Limit,
	}
	retriever := retrieval.NewRetriever(
		unitofwork.NewUnitOfWork(db).KnowledgeFactRepository(),
		embeddingProvider,
		rankConfig,
		sysLogger,
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.FactTopic, pubSub)

	consumerLogger := logger.NewIsolatedLogger("logs/fact_derivation.log")
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.FactTopic,
		uowFactory,
		embeddingProvider,
		natsPub,
		cfg.Retrieval.MinFactLength,
		consumerLogger,
	)

	knowledgeService := service.NewKnowledgeService(uowFactory, embeddingProvider, retriever, sysLogger)

	pipelineLogger := logger.NewIsolatedLogger("logs/llm_rag.log")
	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		searchExecutor,
		retriever,
		filterStateRepo,
		publisherService,
		natsPub,
		usageTracker,
		cfg.App.DailyTurnLimit,
		sysLogger,
		pipelineLogger,
	)

	// 7. Controllers
	return &Container{
		ChatController:      controller.NewChatController(chatService, sysLogger),
		KnowledgeController: controller.NewKnowledgeController(knowledgeService),

		ConsumerService: consumerService,
		Logger:          sysLogger,
	}
}
