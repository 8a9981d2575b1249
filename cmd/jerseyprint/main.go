package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"jerseyprint/internal/auth"
	"jerseyprint/internal/catalog"
	"jerseyprint/internal/config"
	"jerseyprint/internal/domain"
	"jerseyprint/internal/http/handlers"
	"jerseyprint/internal/http/middleware"
	"jerseyprint/internal/http/server"
	"jerseyprint/internal/infra/fetch"
	"jerseyprint/internal/infra/idempotency"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
	"jerseyprint/internal/infra/objectstore"
	"jerseyprint/internal/infra/postgres"
	"jerseyprint/internal/notify"
	"jerseyprint/internal/orders"
	"jerseyprint/internal/render/fonts"
	"jerseyprint/internal/render/raster"
	"jerseyprint/internal/render/vector"
)

func main() {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded .env")
	}
	cfg := config.Load()

	if err := ensureLogDir(cfg.Logger.File); err != nil {
		logging.Error("Failed to create log directory", "error", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := wire(ctx, cfg)
	defer svc.close()

	idleConnsClosed := make(chan struct{})
	startServer(svc, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// service is the wired application with the resources main must release.
type service struct {
	app        *fiber.App
	dispatcher *notify.Dispatcher
	pool       *postgres.DB
	rdb        *redis.Client
	limiter    fiber.Storage
}

// wire builds every collaborator from cfg. Sections left empty in the config
// stay nil and surface as 503 on the routes that need them.
func wire(ctx context.Context, cfg config.Config) *service {
	svc := &service{}
	m := metrics.New()

	limits := domain.Limits{MaxName: cfg.Render.MaxNameLength, MaxNumber: cfg.Render.MaxNumberLength}
	fetcher := fetch.New(time.Duration(cfg.Render.FetchTimeoutSecs)*time.Second, int64(cfg.Render.MaxImageBytes))

	var fontSource domain.FontSource
	if cfg.Render.FontPath != "" {
		fontSource = fonts.NewProvider(cfg.Render.FontPath, fetcher)
	} else {
		logging.Warn("No font configured, rendering with the embedded fallback face")
	}

	var docs domain.DocumentStore
	tokens := auth.NewCache()
	if cfg.Postgres.Configured() {
		dsn, err := postgres.DSN(cfg.Postgres)
		if err != nil {
			logging.Error("Invalid postgres config", "error", err)
		} else {
			svc.pool = postgres.NewDB()
			docs = postgres.NewDocumentStore(svc.pool, dsn)
			if db, err := svc.pool.Get(dsn); err == nil {
				if err := postgres.Ping(ctx, db, 5*time.Second); err != nil {
					logging.Warn("Postgres not reachable yet", "error", err)
				}
			}
			reloader := auth.NewReloader(postgres.NewTokenRepository(svc.pool, dsn), tokens, cfg.Auth.ReloadInterval)
			if err := reloader.LoadOnce(ctx); err != nil {
				logging.Error("Failed to load admin tokens", "error", err)
			}
			reloader.Start(ctx)
		}
	} else {
		logging.Warn("Postgres not configured, catalog and orders are unavailable")
	}

	var objects domain.ObjectStore
	filesRoot := ""
	if cfg.Storage.Root != "" {
		base := cfg.Storage.PublicBaseURL
		if base == "" {
			base = cfg.Server.PublicBaseURL
		}
		fs, err := objectstore.NewFS(cfg.Storage.Root, base)
		if err != nil {
			logging.Error("Failed to open object storage", "root", cfg.Storage.Root, "error", err)
		} else {
			objects = fs
			filesRoot = fs.Root()
		}
	}

	var guard orders.Guard
	if cfg.Cache.RedisHost != "" {
		svc.rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.IdempotencyDB,
		})
		guard = idempotency.New(svc.rdb, cfg.Cache.IdempotencyTTL)
	}
	svc.limiter = middleware.NewStore(cfg.Cache.RedisHost, cfg.Cache.RateLimitDB)

	compositor := raster.New(fontSource, fetcher, limits)
	exporter := vector.New(fontSource, fetcher, limits, cfg.Render.FontFamily)
	cat := catalog.New(docs, objects)

	notifyTimeout := time.Duration(cfg.Notify.TimeoutSecs) * time.Second
	svc.dispatcher = notify.NewDispatcher(notifyTimeout, m)
	notifier := &notify.Notifier{
		Dispatcher: svc.dispatcher,
		Mail:       &notify.MailQueue{Store: docs, Recipients: cfg.Notify.Emails},
		Webhook:    notify.NewWebhook(cfg.Notify.WebhookURL, notifyTimeout),
		Stores:     cat,
	}

	renderTimeout := time.Duration(cfg.Render.TimeoutSecs) * time.Second
	checkout := &orders.Service{
		Store:         docs,
		Objects:       objects,
		Products:      cat,
		Compositor:    compositor,
		Fetcher:       fetcher,
		Guard:         guard,
		Notifier:      notifier,
		Metrics:       m,
		Limits:        limits,
		RenderTimeout: renderTimeout,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		Now:           func() time.Time { return time.Now().UTC() },
	}

	svc.app = server.New(server.Deps{
		Config:       cfg,
		Tokens:       tokens,
		Metrics:      m,
		LimiterStore: svc.limiter,
		Render: &handlers.Render{
			Raster:  compositor,
			Vector:  exporter,
			Metrics: m,
			Timeout: renderTimeout,
		},
		Catalog:   &handlers.Catalog{Service: cat, MaxUploadBytes: cfg.Limits.MaxUploadBytes},
		Orders:    &handlers.Orders{Service: checkout},
		FilesRoot: filesRoot,
	})
	return svc
}

func (s *service) close() {
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			logging.Warn("Closing postgres failed", "error", err)
		}
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.limiter != nil {
		_ = s.limiter.Close()
	}
}

// startServer starts the app, waits for a shutdown signal and drains pending
// notifications before closing idleConnsClosed.
func startServer(svc *service, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := svc.app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := svc.app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}
	svc.dispatcher.Wait()

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

// ensureLogDir creates the directory of the log file.
func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
