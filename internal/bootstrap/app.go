package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"gopherai-docchat/internal/ai"
	"gopherai-docchat/internal/app"
	"gopherai-docchat/internal/cache"
	"gopherai-docchat/internal/config"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/pkg/logger"
	"gopherai-docchat/internal/pkg/tokenbudget"
	"gopherai-docchat/internal/platform/database"
	rabbitmqClient "gopherai-docchat/internal/platform/rabbitmq"
	redisClient "gopherai-docchat/internal/platform/redis"
	"gopherai-docchat/internal/repository"
	"gopherai-docchat/internal/storage"
	"gopherai-docchat/internal/vector"
	"gopherai-docchat/internal/worker"
)

type App struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Files  *storage.MinioStore

	AuthService       *app.AuthService
	DocumentService   *app.DocumentService
	ChatService       *app.ChatService
	DescriptionWorker *worker.DescriptionWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	if a.Redis, err = redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		return err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
		return err
	}

	a.Files, err = storage.NewMinioStore(ctx, storage.Config{
		Endpoint:          cfg.Storage.Endpoint,
		AccessKeyID:       cfg.Storage.AccessKeyID,
		SecretAccessKey:   cfg.Storage.SecretAccessKey,
		Bucket:            cfg.Storage.Bucket,
		UseSSL:            cfg.Storage.UseSSL,
		UploadURLExpiry:   time.Duration(cfg.Storage.UploadURLExpireMinutes) * time.Minute,
		DownloadURLExpiry: time.Duration(cfg.Storage.DownloadURLExpireMinutes) * time.Minute,
	})
	return err
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	userRepo := repository.NewUserRepository(a.DB)
	documentRepo := repository.NewDocumentRepository(a.DB)
	chatRepo := repository.NewChatRecordRepository(a.DB)

	index, err := vector.NewIndex()
	if err != nil {
		return err
	}
	if err := warmIndex(ctx, index, documentRepo); err != nil {
		return err
	}

	llmClient := ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second)
	llmConfig := app.LLMConfig{
		Chat: ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		},
		Embedding: ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		},
	}
	budget := tokenbudget.New(cfg.LLM.MaxDocumentTokens)
	history := cache.NewChatHistoryCache(a.Redis, time.Duration(cfg.Redis.ChatHistoryTTLSeconds)*time.Second)

	a.AuthService = app.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.DocumentService = app.NewDocumentService(app.DocumentServiceDeps{
		Documents: documentRepo,
		Files:     a.Files,
		Scheduler: rabbitmqClient.NewDescriptionPublisher(a.MQConn, cfg.RabbitMQ.DescriptionQueue),
		Index:     index,
		History:   history,
		LLM:       llmClient,
		LLMConfig: llmConfig,
		Budget:    budget,
		Limits:    app.SearchLimits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit},
		Logger:    a.Logger,
	})
	a.ChatService = app.NewChatService(app.ChatServiceDeps{
		Documents: documentRepo,
		Chats:     chatRepo,
		Files:     a.Files,
		History:   history,
		LLM:       llmClient,
		LLMConfig: llmConfig,
		Budget:    budget,
		Logger:    a.Logger,
	})

	a.DescriptionWorker = worker.NewDescriptionWorker(
		a.MQConn,
		a.DocumentService,
		cfg.RabbitMQ.DescriptionQueue,
		time.Duration(cfg.RabbitMQ.JobTimeoutSeconds)*time.Second,
		a.Logger,
	)
	if err := a.DescriptionWorker.Start(ctx); err != nil {
		return fmt.Errorf("start description worker failed: %w", err)
	}

	a.Logger.Info().Object("llm", llmConfig).Str("database", cfg.Database.Driver).Msg("application wired")
	return nil
}

type embeddedDocuments interface {
	ListWithEmbedding() ([]model.Document, error)
}

func warmIndex(ctx context.Context, index *vector.Index, docs embeddedDocuments) error {
	items, err := docs.ListWithEmbedding()
	if err != nil {
		return fmt.Errorf("load document embeddings failed: %w", err)
	}
	for _, d := range items {
		if !d.HasEmbedding() {
			continue
		}
		if err := index.Upsert(ctx, vector.Entry{
			DocumentID:      d.ID,
			TokenIdentifier: d.TokenIdentifier,
			Title:           d.Title,
			Description:     d.Description,
			Embedding:       d.EmbeddingVector(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) PingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *App) PingRedis(ctx context.Context) error {
	return redisClient.Ping(ctx, a.Redis)
}

func (a *App) PingRabbitMQ(ctx context.Context) error {
	return rabbitmqClient.Ping(ctx, a.MQConn)
}

func (a *App) Close() error {
	var closeErr error
	if a.DescriptionWorker != nil {
		a.DescriptionWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
