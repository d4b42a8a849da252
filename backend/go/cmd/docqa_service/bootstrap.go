package main

import (
	"context"
	"fmt"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/kafka"
	"DocQA/backend/go/internal/database/milvus"
	"DocQA/backend/go/internal/database/minio"
	"DocQA/backend/go/internal/database/mongo"
	"DocQA/backend/go/internal/database/mysql"
	"DocQA/backend/go/internal/database/redis"
	"DocQA/backend/go/internal/docqa_service/events"
	"DocQA/backend/go/internal/docqa_service/history"
	"DocQA/backend/go/internal/docqa_service/lock"
	"DocQA/backend/go/internal/docqa_service/rag/dal"
	"DocQA/backend/go/internal/docqa_service/rag/embeddings"
	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/llms"
	"DocQA/backend/go/internal/docqa_service/rag/loaders"
	"DocQA/backend/go/internal/docqa_service/rag/pipeline"
	"DocQA/backend/go/internal/docqa_service/rag/splitters"
	"DocQA/backend/go/internal/docqa_service/rag/storages/blobstore"
	"DocQA/backend/go/internal/docqa_service/rag/storages/vectorstore"
	"DocQA/backend/go/internal/docqa_service/service"
	"DocQA/backend/go/internal/embedding"
	"DocQA/backend/go/internal/llm"
	"DocQA/backend/go/pkg/logger"
)

type closer struct {
	name string
	fn   func() error
}

// closerStack 按注册的逆序关闭资源。
type closerStack struct {
	items []closer
}

func (s *closerStack) add(name string, fn func() error) {
	s.items = append(s.items, closer{name: name, fn: fn})
}

func (s *closerStack) closeAll(log *logger.Logger) {
	for i := len(s.items) - 1; i >= 0; i-- {
		c := s.items[i]
		if err := c.fn(); err != nil {
			log.WithError(err).WithField("resource", c.name).Warn("Failed to close resource")
		}
	}
	s.items = nil
}

type dependencies struct {
	service *service.Service
}

// bootstrap connects to every configured backend and assembles the service.
// Resources opened before a failure are still returned in the closer stack.
func bootstrap(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*dependencies, *closerStack, error) {
	closers := &closerStack{}

	registry, err := loaders.NewRegistry(
		loaders.WithScratchDir(cfg.Loader.ScratchDir),
		loaders.WithUnidocLicense(cfg.Loader.UnidocLicense),
		loaders.WithExtraFormats(cfg.Loader.ExtraFormats...),
	)
	if err != nil {
		return nil, closers, err
	}
	log.WithField("formats", registry.Extensions()).Info("Document loaders ready")

	splitter, err := splitters.NewCharacterSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, closers, err
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, closers, fmt.Errorf("failed to create embedding client: %w", err)
	}

	chatClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, closers, fmt.Errorf("failed to create LLM client: %w", err)
	}
	chat := llms.NewAdapter(chatClient)

	vectors, err := newVectorStore(ctx, cfg, closers, log)
	if err != nil {
		return nil, closers, err
	}
	blobs, err := newBlobStore(ctx, cfg, closers, log)
	if err != nil {
		return nil, closers, err
	}

	opts := service.OptionsFromConfig(cfg.RAG)
	locker, err := newLocker(ctx, cfg, opts.IngestTimeout, closers, log)
	if err != nil {
		return nil, closers, err
	}
	publisher, err := newPublisher(cfg, closers, log)
	if err != nil {
		return nil, closers, err
	}
	store, err := newHistory(ctx, cfg, closers, log)
	if err != nil {
		return nil, closers, err
	}

	svc := service.New(service.Dependencies{
		Blobs:     blobs,
		Formats:   registry,
		Ingestion: pipeline.NewIngestionPipeline(registry, splitter, embedder, vectors, log),
		Answers: pipeline.NewAnswerPipeline(embedder, vectors, chat, pipeline.AnswerOptions{
			TopK:      cfg.RAG.TopK,
			MaxTokens: cfg.RAG.MaxTokens,
			Stop:      cfg.RAG.Stop,
		}, log),
		Locker:  locker,
		Events:  publisher,
		History: store,
		Log:     log,
	}, opts)
	return &dependencies{service: svc}, closers, nil
}

func newEmbedder(cfg config.EmbeddingConfig) (*embeddings.Adapter, error) {
	client, err := embedding.NewEmdModel(cfg)
	if err != nil {
		return nil, err
	}
	client, err = embedding.NewCachedModel(client, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return embeddings.NewAdapter(client, cfg.Dimension, cfg.BatchSize)
}

func newVectorStore(ctx context.Context, cfg *config.AppConfig, closers *closerStack, log *logger.Logger) (interfaces.VectorStore, error) {
	if cfg.Databases.VectorDriver == "memory" {
		log.Warn("Using in-memory vector store; the index is lost on restart")
		return vectorstore.NewMemoryStore(cfg.Embedding.Dimension), nil
	}

	mc, err := milvus.NewClient(ctx, cfg.Databases.Milvus, cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}
	closers.add("milvus", func() error { mc.Close(); return nil })
	if err := mc.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return vectorstore.NewMilvusStore(mc, log)
}

func newBlobStore(ctx context.Context, cfg *config.AppConfig, closers *closerStack, log *logger.Logger) (interfaces.BlobStore, error) {
	if cfg.Databases.BlobDriver == "memory" {
		log.Warn("Using in-memory document store; uploads are lost on restart")
		return blobstore.NewMemoryStore(cfg.RAG.DocumentMode), nil
	}

	mc, err := minio.NewClient(ctx, cfg.Databases.MinIO)
	if err != nil {
		return nil, err
	}
	db, err := mysql.Open(cfg.Databases.MySQL)
	if err != nil {
		return nil, err
	}
	closers.add("mysql", func() error { return mysql.Close(db) })

	documents := dal.NewDocumentDAL(db)
	if err := documents.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return blobstore.NewMinioStore(mc, cfg.Databases.MinIO.Bucket, documents, cfg.RAG.DocumentMode, log), nil
}

// newLocker 有 Redis 时使用分布式锁，否则退回进程内锁。
func newLocker(ctx context.Context, cfg *config.AppConfig, ingestTimeout time.Duration, closers *closerStack, log *logger.Logger) (lock.Locker, error) {
	if cfg.Databases.Redis.Address == "" {
		return lock.NewLocalLocker(), nil
	}
	rdb, err := redis.NewClient(ctx, cfg.Databases.Redis)
	if err != nil {
		return nil, err
	}
	closers.add("redis", rdb.Close)
	log.Info("Using Redis upload lock")
	// 锁的有效期要覆盖一次完整的替换流程
	return lock.NewRedisLocker(rdb, cfg.App.Name+":lock:", ingestTimeout+time.Minute), nil
}

func newPublisher(cfg *config.AppConfig, closers *closerStack, log *logger.Logger) (events.Publisher, error) {
	if len(cfg.Databases.Kafka.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	kc, err := kafka.NewClient(cfg.Databases.Kafka)
	if err != nil {
		return nil, err
	}
	// KafkaClient.Close 同时关闭 writer，不再单独关闭 publisher
	closers.add("kafka", kc.Close)
	log.WithField("topic", cfg.Databases.Kafka.Topic).Info("Publishing document events to Kafka")
	return events.NewKafkaPublisher(kc.Writer), nil
}

func newHistory(ctx context.Context, cfg *config.AppConfig, closers *closerStack, log *logger.Logger) (history.Store, error) {
	if cfg.Databases.MongoDB.Address == "" {
		return history.NewMemoryStore(100), nil
	}
	client, err := mongo.NewClient(ctx, cfg.Databases.MongoDB)
	if err != nil {
		return nil, err
	}
	closers.add("mongodb", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	})
	store := history.NewMongoStore(client.Database(cfg.Databases.MongoDB.Database), cfg.Databases.MongoDB.Collection)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("Failed to create query history index")
	}
	return store, nil
}
