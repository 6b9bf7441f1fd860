package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filespace/internal/auth"
	"filespace/internal/blobstore"
	"filespace/internal/blobstore/memory"
	s3store "filespace/internal/blobstore/s3"
	"filespace/internal/config"
	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/handler"
	"filespace/internal/metrics"
	"filespace/internal/middleware"
	"filespace/internal/repository/badger"
	badgerRepo "filespace/internal/repository/badger/workspace"
	"filespace/internal/repository/postgres"
	postgresRepo "filespace/internal/repository/postgres/workspace"
	wsService "filespace/internal/service/workspace"
	"filespace/internal/templates"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"metadata_backend", cfg.MetadataBackend,
		"blob_backend", cfg.BlobBackend,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		metrics.InitRegistry()
	}

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	stores, closeMetadata, err := newMetadataStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	defer closeMetadata()
	stores.Blobs = blobstore.NewInstrumented(blobs, cfg.StoreCallTimeout, metrics.NewBlobMetrics())

	templateRegistry, err := templates.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load document templates: %v", err)
	}
	logger.Info("document templates loaded", "count", len(templateRegistry.List()))

	// Services
	bootstrap := wsService.NewBootstrapper(stores, logger)
	fileService := wsService.NewFileService(stores, bootstrap, logger)
	folderService := wsService.NewFolderService(stores, bootstrap, wsService.NewCascadeConfig(cfg), logger)
	treeService := wsService.NewTreeService(stores, bootstrap, logger)
	documentService := wsService.NewDocumentService(fileService, templateRegistry, logger)

	// Handlers
	filesHandler := handler.NewFilesHandler(fileService, folderService, treeService, logger)
	documentHandler := handler.NewDocumentHandler(documentService, logger)

	logger.Info("services initialized")

	// Authenticated API (Go 1.22+ enhanced patterns)
	apiMux := http.NewServeMux()
	handler.RegisterRoutes(apiMux, filesHandler, documentHandler)

	// Apply middleware in reverse order (they wrap each other)
	// Order: Auth → RateLimit → Metrics → Routes
	var api http.Handler = apiMux
	api = middleware.Metrics(metrics.NewHTTPMetrics())(api)
	api = middleware.RateLimit(middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))(api)
	api = middleware.AuthMiddleware(jwtVerifier, logger)(api)

	// Health and metrics stay outside authentication
	root := http.NewServeMux()
	root.HandleFunc("GET /health", handler.HealthCheck)
	root.Handle("GET /metrics", metrics.Handler())
	root.Handle("/", api)

	// Order: CORS → Gzip → Recovery → RequestLogger → root
	var h http.Handler = root
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)
	h = gzhttp.GzipHandler(h)

	// CORS - Must be outermost to answer OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute, // folder cascades can run long
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	if cfg.AuthJWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.AuthJWKSURL, logger)
	}
	return auth.NewHMACVerifier(cfg.AuthJWTSecret, logger)
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (wsRepo.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendMemory:
		logger.Warn("using in-memory blob store; content is lost on restart")
		opts := []memory.Option{}
		if cfg.BlobPublicURL != "" {
			opts = append(opts, memory.WithBaseURL(cfg.BlobPublicURL))
		}
		return memory.NewStore(opts...), nil

	case config.BlobBackendS3:
		s3Cfg := s3store.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			MaxRetries:      cfg.S3MaxRetries,
			PublicURL:       cfg.BlobPublicURL,
		}
		client, err := s3store.NewClient(ctx, s3Cfg)
		if err != nil {
			return nil, err
		}
		store, err := s3store.NewStore(ctx, client, s3Cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("s3 blob store connected", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return store, nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

func newMetadataStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (wsService.Stores, func(), error) {
	switch cfg.MetadataBackend {
	case config.MetadataBackendBadger:
		db, err := badger.Open(ctx, cfg.BadgerDir)
		if err != nil {
			return wsService.Stores{}, nil, err
		}
		logger.Info("badger metadata store opened", "dir", cfg.BadgerDir)

		repoConfig := &badger.RepositoryConfig{DB: db, Logger: logger}
		stores := wsService.Stores{
			Files:   badgerRepo.NewFileRepository(repoConfig),
			Folders: badgerRepo.NewFolderRepository(repoConfig),
			Batch:   badgerRepo.NewBatchWriter(repoConfig),
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close badger", "error", err)
			}
		}
		return stores, closeFn, nil

	case config.MetadataBackendPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return wsService.Stores{}, nil, err
		}
		logger.Info("database connected",
			"max_conns", 25,
			"min_conns", 5,
		)

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return wsService.Stores{}, nil, err
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:    pool,
			Tables:  tables,
			Logger:  logger,
			Timeout: cfg.StoreCallTimeout,
		}
		txManager := postgres.NewTransactionManager(pool, logger)
		stores := wsService.Stores{
			Files:   postgresRepo.NewFileRepository(repoConfig),
			Folders: postgresRepo.NewFolderRepository(repoConfig),
			Batch:   postgresRepo.NewBatchWriter(repoConfig, txManager),
		}
		return stores, pool.Close, nil
	}
	return wsService.Stores{}, nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
}
