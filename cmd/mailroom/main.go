package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/mailroom/internal/config"
	"github.com/dropDatabas3/mailroom/internal/dispatch"
	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/http/controllers"
	"github.com/dropDatabas3/mailroom/internal/http/router"
	"github.com/dropDatabas3/mailroom/internal/mailer"
	"github.com/dropDatabas3/mailroom/internal/metrics"
	"github.com/dropDatabas3/mailroom/internal/notify"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/dropDatabas3/mailroom/internal/render"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
	"github.com/dropDatabas3/mailroom/internal/resolver"
	"github.com/dropDatabas3/mailroom/internal/store/memory"
	"github.com/dropDatabas3/mailroom/internal/store/pg"
	"github.com/dropDatabas3/mailroom/internal/templates"
	migrations "github.com/dropDatabas3/mailroom/migrations/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfgPath := flag.String("config", envOr("MAILROOM_CONFIG", "config.yaml"), "ruta del config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "mailroom",
	})
	defer logger.Sync() //nolint:errcheck
	zlog := logger.L()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		zlog.Fatal("metrics register", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Storage ───
	var (
		templateRepo repository.TemplateRepository
		logRepo      repository.DispatchLogRepository
		tenantRepo   repository.TenantRepository
		storePinger  router.Pinger
	)
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := pg.Connect(ctx, pg.Config{
			DSN:          cfg.Storage.DSN,
			MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		})
		if err != nil {
			zlog.Fatal("pg connect", logger.Err(err))
		}
		defer store.Close()

		if cfg.Flags.Migrate {
			res, err := pg.Migrate(ctx, store.Pool(), migrations.FS)
			if err != nil {
				zlog.Fatal("migrate", logger.Err(err))
			}
			zlog.Info("migrations done",
				logger.Int("applied", len(res.Applied)),
				logger.Int("skipped", len(res.Skipped)),
			)
		}

		templateRepo = store.Templates()
		logRepo = store.DispatchLogs()
		tenantRepo = store.Tenants()
		storePinger = store
	default:
		zlog.Warn("memory storage: todo se pierde al reiniciar (solo dev)")
		templateRepo = memory.NewTemplateRepository()
		logRepo = memory.NewDispatchLogRepository()
		tenantRepo = memory.NewTenantRepository()
	}

	// ─── Cache + render ───
	cache, err := rendercache.New(rendercache.Config{
		Driver:     cfg.Cache.Kind,
		DefaultTTL: config.Duration(cfg.Cache.TTL),
		Addr:       cfg.Cache.Redis.Addr,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		zlog.Fatal("render cache", logger.Err(err))
	}

	engine := render.New(render.Config{
		Cache:     cache,
		CacheTTL:  config.Duration(cfg.Cache.TTL),
		TextWidth: cfg.Render.TextWidth,
	})

	// ─── Servicios ───
	res := resolver.New(templateRepo, tenantRepo)
	tplService := templates.New(templates.Config{
		Repo:      templateRepo,
		Cache:     cache,
		MaxActive: cfg.Limits.MaxActiveTemplates,
	})
	pipeline := dispatch.New(dispatch.Config{
		Resolver:          res,
		Engine:            engine,
		Senders:           mailer.NewSenderProvider(tenantRepo, cfg.Security.SecretBoxMasterKey),
		Logs:              logRepo,
		Notifier:          notify.NewWebhook(config.Duration(cfg.Webhook.Timeout)),
		DefaultWebhookURL: cfg.Webhook.DefaultURL,
		BaseDelay:         config.Duration(cfg.Dispatch.BaseDelay),
		MaxAttempts:       cfg.Dispatch.MaxAttempts,
	})

	handler := router.New(router.Deps{
		Dispatch:    &controllers.DispatchController{Pipeline: pipeline},
		Render:      &controllers.RenderController{Resolver: res, Engine: engine},
		Templates:   &controllers.TemplatesController{Service: tplService, Resolver: res},
		Admin:       &controllers.AdminController{Cache: cache},
		AdminAPIKey: cfg.Admin.APIKey,
		Store:       storePinger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		zlog.Info("mailroom listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server", logger.Err(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown", logger.Err(err))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
