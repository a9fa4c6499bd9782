package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/analogia-app/engine/internal/billing"
	"github.com/analogia-app/engine/internal/httpapi"
	"github.com/analogia-app/engine/internal/identity"
	"github.com/analogia-app/engine/internal/ledger"
	"github.com/analogia-app/engine/internal/modelrouter"
	"github.com/analogia-app/engine/internal/store"
	"github.com/analogia-app/engine/pkg/config"
	"github.com/analogia-app/engine/pkg/cookie"
	"github.com/analogia-app/engine/pkg/httpserver"
	"github.com/analogia-app/engine/pkg/logger"
	"github.com/analogia-app/engine/pkg/pg"
	"github.com/analogia-app/engine/pkg/redis"
)

type appConfig struct {
	Environment   string   `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr      string   `env:"HTTP_ADDR" envDefault:":8080"`
	CookieSecrets []string `env:"COOKIE_SECRETS,required"`
	SessionCookie string   `env:"SESSION_COOKIE_NAME" envDefault:"session_account_id"`
	WebhookSecret string   `env:"PAYMENT_WEBHOOK_SECRET"`

	PG        pg.Config
	Redis     redis.Config
	Generator modelrouter.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment, "engine"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.ErrorContext(ctx, "failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, store.Migrations, store.MigrationsDir, cfg.PG, log); err != nil {
		log.ErrorContext(ctx, "failed to apply migrations", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.ErrorContext(ctx, "failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	cookies, err := cookie.New(cfg.CookieSecrets)
	if err != nil {
		log.ErrorContext(ctx, "failed to initialize cookie manager", logger.Error(err))
		os.Exit(1)
	}

	generatorClient, err := modelrouter.NewClient(cfg.Generator)
	if err != nil {
		log.ErrorContext(ctx, "failed to initialize generation client", logger.Error(err))
		os.Exit(1)
	}

	st := store.New(pool)
	creditLedger := ledger.New(st, cookies, log.With(logger.Component("ledger")))

	handler := httpapi.NewHandler(
		identity.NewResolver(identity.NewCookieSessionSource(cookies, cfg.SessionCookie), cookies,
			log.With(logger.Component("identity"))),
		creditLedger,
		st,
		st,
		modelrouter.NewRouter(generatorClient, log.With(logger.Component("modelrouter"))),
		billing.NewReconciler(st, creditLedger, st, billing.NewRedisGuard(redisClient, 0),
			log.With(logger.Component("billing"))),
		httpapi.Config{WebhookSecret: cfg.WebhookSecret},
		log,
	)

	router := httpapi.NewRouter(handler, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	)

	server := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithReadTimeout(15*time.Second),
		httpserver.WithWriteTimeout(60*time.Second),
		httpserver.WithLogger(log),
	)
	if err := server.Run(ctx, router); err != nil {
		log.ErrorContext(ctx, "server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}
