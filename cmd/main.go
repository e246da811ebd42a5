package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ledgercmd "github.com/taxtracker/ledger/internal/command"
	"github.com/taxtracker/ledger/internal/config"
	"github.com/taxtracker/ledger/internal/handler"
	ledgerqry "github.com/taxtracker/ledger/internal/query"
	"github.com/taxtracker/ledger/internal/repository"
	"github.com/taxtracker/ledger/shared/events"
	"github.com/taxtracker/ledger/shared/middleware"
	redisClient "github.com/taxtracker/ledger/shared/redis"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Ledger service stopped")
	}
}

// run owns every resource of the process; all of them are released before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	// Payload numbers reach the store exactly as the client sent them
	binding.EnableDecoderUseNumber = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database: one handle for the process lifetime, shared by both repositories
	db, err := repository.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", cfg.DBDriver, err)
	}
	defer db.Close()

	if err := repository.Initialize(ctx, db, cfg.DBDriver); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Redis is optional: read-model cache + change events
	var rdb *goredis.Client
	var publisher *events.Publisher
	if cfg.RedisAddr != "" {
		redis, err := redisClient.NewClient(ctx, redisClient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redis.Close()
		rdb = redis.Client
		publisher = events.NewPublisher(redis.Client, events.LedgerEventsStream, cfg.EventStreamMaxLen)
	} else {
		log.Info().Msg("REDIS_ADDR not set, view cache and change events disabled")
	}

	// CQRS: write repo, read repo (+ cache)
	writeRepo := repository.NewLedgerWriteRepository(db)
	readRepo := repository.NewLedgerReadRepository(db, rdb, cfg.CacheTTL)

	commandSvc := ledgercmd.NewLedgerCommandService(writeRepo, readRepo, publisher)
	querySvc := ledgerqry.NewLedgerQueryService(readRepo)

	ledgerHandler := handler.NewLedgerHandler(commandSvc, querySvc)

	router := newRouter(cfg, ledgerHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	log.Info().Str("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("Ledger service starting")
	return serve(srv, sigChan, 10*time.Second)
}

// serve runs srv until stop delivers a signal or the listener fails. A listener failure is
// returned to the caller instead of exiting so deferred cleanup still runs.
func serve(srv *http.Server, stop <-chan os.Signal, shutdownTimeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func newRouter(cfg *config.Config, ledgerHandler *handler.LedgerHandler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/init", ledgerHandler.GetInitialState)
		api.POST("/business-info", ledgerHandler.SetBusinessInfo)
		api.POST("/transaction", ledgerHandler.CreateTransaction)
		api.PUT("/transaction/:id", ledgerHandler.ReplaceTransaction)
		api.DELETE("/transaction/:id", ledgerHandler.RemoveTransaction)
		api.POST("/clear", ledgerHandler.ResetAll)
	}

	// Front-end bundle
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
	} else {
		log.Warn().Str("dir", cfg.StaticDir).Msg("Static directory not found, front end not served")
	}

	return router
}

func corsConfig(origin string) cors.Config {
	c := cors.DefaultConfig()
	if origin == "*" {
		c.AllowAllOrigins = true
	} else {
		for _, o := range strings.Split(origin, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowOrigins = append(c.AllowOrigins, o)
			}
		}
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = append(c.AllowHeaders, middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	return c
}
