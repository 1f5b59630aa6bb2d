package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atm-gateway/config"
	httpHandler "atm-gateway/internal/adapter/http/handler"
	"atm-gateway/internal/adapter/storage/memory"
	pgStorage "atm-gateway/internal/adapter/storage/postgres"
	redisStorage "atm-gateway/internal/adapter/storage/redis"
	sqliteStorage "atm-gateway/internal/adapter/storage/sqlite"
	"atm-gateway/internal/adapter/storage/yamlfile"
	"atm-gateway/internal/adapter/tcp"
	"atm-gateway/internal/core/ports"
	"atm-gateway/internal/protocol"
	"atm-gateway/internal/service"
	"atm-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

const usage = "Usage: atm-server [port]"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	port, err := portArg(os.Args[1:], cfg.Server.Port)
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	cfg.Server.Port = port

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Starting ATM server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		accounts  ports.AccountRepository
		auditRepo ports.AuditRepository
		checkers  []ports.HealthChecker
	)

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		accounts = pgStorage.NewAccountRepo(pool)
		auditRepo = pgStorage.NewAuditRepository(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	case config.StorageSQLite:
		db, err := sqliteStorage.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("Failed to open SQLite database")
		}
		defer db.Close()
		accounts = sqliteStorage.NewAccountRepo(db)
		auditRepo = sqliteStorage.NewAuditRepository(db)
		checkers = append(checkers, sqliteStorage.NewHealthCheck(db))
	default:
		accounts = yamlfile.NewAccountStore(cfg.Storage.AccountsFile)
	}

	var (
		tokens  ports.TokenStore = memory.NewTokenStore()
		limiter ports.LoginLimiter
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		tokens = redisStorage.NewTokenStore(rdb)
		limiter = redisStorage.NewLoginLimiter(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	} else if cfg.Session.LoginLimit > 0 {
		log.Warn().Msg("session.login_limit needs redis, login attempts are not limited")
	}

	catalogs := yamlfile.NewCatalogStore(cfg.Storage.CatalogFile)
	col, err := catalogs.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Storage.CatalogFile).Msg("Failed to load text catalog")
	}
	if len(col.Raw()) > protocol.MaxUpdateSize {
		log.Fatal().Int("size", len(col.Raw())).Msg("Text catalog too large for UPDATE")
	}
	log.Info().Int32("version", col.Version).Strs("languages", col.Languages()).Msg("Text catalog loaded")

	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))
	ledger := service.NewLedgerService(accounts, tokens, service.LedgerOptions{
		TokenTTL:    cfg.Session.TokenTTL,
		LoginLimit:  cfg.Session.LoginLimit,
		LoginWindow: cfg.Session.LoginWindow,
		Limiter:     limiter,
		Audit:       auditSvc,
	}, logger.Component(log, "ledger"))
	if err := ledger.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load accounts")
	}

	var admin *http.Server
	if cfg.Admin.Enabled {
		gin.SetMode(gin.ReleaseMode)
		router := httpHandler.SetupRouter(httpHandler.RouterDeps{
			Ledger:         ledger,
			Catalogs:       catalogs,
			Limiter:        limiter,
			RateLimit:      cfg.Admin.RateLimit,
			AdminToken:     cfg.Admin.Token,
			HealthCheckers: checkers,
			Logger:         logger.Component(log, "admin"),
		})
		admin = &http.Server{
			Addr:              cfg.Admin.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", admin.Addr).Msg("Admin HTTP server listening")
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Admin HTTP server failed")
			}
		}()
	}

	atm := tcp.NewServer(ledger, catalogs, logger.Component(log, "tcp"))
	serveErr := atm.ListenAndServe(ctx, cfg.Server.Addr())
	if serveErr != nil {
		log.Error().Err(serveErr).Msg("ATM server failed")
	}
	log.Info().Msg("Shutting down server...")

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Admin server forced to shutdown")
		}
	}

	log.Info().Msg("Server exited")
	if serveErr != nil {
		os.Exit(1)
	}
}

// portArg returns the port given on the command line, or def when absent.
func portArg(args []string, def int) (int, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 1:
		return config.ParsePort(args[0])
	default:
		return 0, fmt.Errorf("expected at most one argument, got %d", len(args))
	}
}
