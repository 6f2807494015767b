// Package engine wires the configured components into a running core:
// storage providers, metadata repositories, cache, event bus, chunk
// pipeline, file service, scanner and command dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/cache"
	cachememory "github.com/marmos91/chunkstore/pkg/cache/memory"
	cacheredis "github.com/marmos91/chunkstore/pkg/cache/redis"
	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/command"
	"github.com/marmos91/chunkstore/pkg/config"
	"github.com/marmos91/chunkstore/pkg/events"
	"github.com/marmos91/chunkstore/pkg/file"
	"github.com/marmos91/chunkstore/pkg/metadata"
	"github.com/marmos91/chunkstore/pkg/metadata/cached"
	metamemory "github.com/marmos91/chunkstore/pkg/metadata/memory"
	metamongo "github.com/marmos91/chunkstore/pkg/metadata/mongo"
	"github.com/marmos91/chunkstore/pkg/metrics"
	_ "github.com/marmos91/chunkstore/pkg/metrics/prometheus" // register collectors
	"github.com/marmos91/chunkstore/pkg/scanner"
	"github.com/marmos91/chunkstore/pkg/storage"
	storagebadger "github.com/marmos91/chunkstore/pkg/storage/badger"
	storagefs "github.com/marmos91/chunkstore/pkg/storage/fs"
	storagegridfs "github.com/marmos91/chunkstore/pkg/storage/gridfs"
	storages3 "github.com/marmos91/chunkstore/pkg/storage/s3"
)

// Engine is the assembled core.
type Engine struct {
	Dispatcher *command.Dispatcher
	Files      *file.Service
	Scanner    *scanner.Scanner
	Bus        *events.Bus

	closers []io.Closer
}

// New builds an engine from configuration. Components without a
// configured external backend fall back to their in-memory variants.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Metrics {
		metrics.InitRegistry()
	}

	e := &Engine{Bus: events.NewBus()}

	var mongoClient *mongo.Client
	if cfg.ConnectionStrings.MongoDB != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.ConnectionStrings.MongoDB))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		mongoClient = client
		e.closers = append(e.closers, closerFunc(func() error {
			return client.Disconnect(context.Background())
		}))
	}

	files, chunks, err := e.buildRepositories(ctx, cfg, mongoClient)
	if err != nil {
		e.Close()
		return nil, err
	}

	registry, err := e.buildProviders(ctx, cfg, mongoClient)
	if err != nil {
		e.Close()
		return nil, err
	}

	strategy, err := storage.NewStrategy(cfg.StorageProviderSettings.DistributionStrategy)
	if err != nil {
		e.Close()
		return nil, err
	}

	lifecycle := events.NewChunkLifecycleHandler(files, chunks, e.Bus)
	events.NewChunkStoredLogger(e.Bus)

	manager := chunk.NewManager(chunk.Config{
		Sizing: chunk.SizePolicy{
			Min:     cfg.ChunkSettings.MinChunkSize.Int64(),
			Default: cfg.ChunkSettings.DefaultChunkSize.Int64(),
			Max:     cfg.ChunkSettings.MaxChunkSize.Int64(),
		},
		CompressionEnabled: cfg.ChunkSettings.CompressionEnabled,
		CompressionLevel:   cfg.ChunkSettings.CompressionLevel,
		Parallelism:        cfg.ChunkSettings.Parallelism,
		RollbackOnFailure:  cfg.ChunkSettings.RollbackOnFailure,
	}, registry, strategy, chunks, e.Bus, metrics.NewChunkMetrics())

	e.Files = file.NewService(file.Config{}, files, manager, lifecycle, e.Bus)
	e.Scanner = scanner.New(files, e.Files, e.Bus)

	e.Dispatcher = command.NewDispatcher()
	e.Dispatcher.Use(command.NewValidationMiddleware())
	e.Dispatcher.Use(command.NewLoggingMiddleware())
	e.Dispatcher.Use(command.NewPerformanceMiddleware(cfg.SlowCommandThreshold))
	command.RegisterFileHandlers(e.Dispatcher, e.Files)
	command.RegisterScanHandler(e.Dispatcher, e.Scanner, nil)

	return e, nil
}

// buildRepositories selects MongoDB or in-memory metadata repositories
// and wraps both behind the write-through cache.
func (e *Engine) buildRepositories(ctx context.Context, cfg *config.Config, mongoClient *mongo.Client) (metadata.FileRepository, metadata.ChunkRepository, error) {
	var (
		files  metadata.FileRepository
		chunks metadata.ChunkRepository
	)

	if mongoClient != nil {
		db := mongoClient.Database(cfg.DatabaseSettings.DatabaseName)
		fileRepo := metamongo.NewFileRepository(db.Collection(cfg.DatabaseSettings.FileMetadataCollectionName))
		chunkRepo := metamongo.NewChunkRepository(db.Collection(cfg.DatabaseSettings.ChunkCollectionName))
		if err := fileRepo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		if err := chunkRepo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		files, chunks = fileRepo, chunkRepo
	} else {
		files = metamemory.NewFileRepository()
		chunks = metamemory.NewChunkRepository()
	}

	var descriptorCache cache.Cache
	if cfg.ConnectionStrings.Redis != "" {
		redisCache, err := cacheredis.NewFromConfig(ctx, cacheredis.Config{
			Addr:      cfg.ConnectionStrings.Redis,
			KeyPrefix: "chunkstore:",
		})
		if err != nil {
			return nil, nil, err
		}
		e.closers = append(e.closers, redisCache)
		descriptorCache = redisCache
	} else {
		descriptorCache = cachememory.New()
	}

	cacheMetrics := metrics.NewCacheMetrics()
	files = cached.NewFileRepository(files, descriptorCache, cfg.CacheTTL, cacheMetrics)
	chunks = cached.NewChunkRepository(chunks, descriptorCache, cfg.CacheTTL, cacheMetrics)
	return files, chunks, nil
}

// buildProviders registers every configured storage backend.
func (e *Engine) buildProviders(ctx context.Context, cfg *config.Config, mongoClient *mongo.Client) (*storage.Registry, error) {
	registry := storage.NewRegistry()
	settings := cfg.StorageProviderSettings

	register := func(p storage.Provider) error {
		if settings.OperationTimeout > 0 {
			p = storage.WithTimeout(p, settings.OperationTimeout)
		}
		return registry.Register(p)
	}

	if settings.FileSystemPath != "" {
		p, err := storagefs.New("fs", storagefs.DefaultConfig(settings.FileSystemPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem provider: %w", err)
		}
		if err := register(p); err != nil {
			return nil, err
		}
	}

	if settings.BadgerPath != "" {
		p, err := storagebadger.Open("badger", settings.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger provider: %w", err)
		}
		e.closers = append(e.closers, p)
		if err := register(p); err != nil {
			return nil, err
		}
	}

	if settings.MongoDBPath != "" {
		if mongoClient == nil {
			return nil, errors.New("gridfs provider requires ConnectionStrings.MongoDB")
		}
		db := mongoClient.Database(cfg.DatabaseSettings.DatabaseName)
		p, err := storagegridfs.New("gridfs", db, storagegridfs.Config{BucketName: settings.MongoDBPath})
		if err != nil {
			return nil, fmt.Errorf("failed to create gridfs provider: %w", err)
		}
		if err := register(p); err != nil {
			return nil, err
		}
	}

	if settings.S3.Bucket != "" {
		p, err := storages3.NewFromConfig(ctx, "s3", storages3.Config{
			Bucket:         settings.S3.Bucket,
			Region:         settings.S3.Region,
			Endpoint:       settings.S3.Endpoint,
			KeyPrefix:      settings.S3.KeyPrefix,
			ForcePathStyle: settings.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 provider: %w", err)
		}
		if err := register(p); err != nil {
			return nil, err
		}
	}

	if registry.Len() == 0 {
		return nil, errors.New("no storage providers configured")
	}
	return registry, nil
}

// Close releases every owned backend connection.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
