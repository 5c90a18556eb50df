package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/config"
	"github.com/mamadbah2/dispatch/internal/notify"
	"github.com/mamadbah2/dispatch/internal/repository"
	"github.com/mamadbah2/dispatch/internal/repository/memory"
	"github.com/mamadbah2/dispatch/internal/repository/mongodb"
	"github.com/mamadbah2/dispatch/internal/repository/sheets"
	"github.com/mamadbah2/dispatch/internal/scheduler"
	"github.com/mamadbah2/dispatch/internal/server/handlers"
	"github.com/mamadbah2/dispatch/internal/server/router"
	journalsvc "github.com/mamadbah2/dispatch/internal/service/journal"
	ordersvc "github.com/mamadbah2/dispatch/internal/service/orders"
	reportingsvc "github.com/mamadbah2/dispatch/internal/service/reporting"
	schedulesvc "github.com/mamadbah2/dispatch/internal/service/schedule"
	"github.com/mamadbah2/dispatch/pkg/clients/telegram"
	"github.com/mamadbah2/dispatch/pkg/logger"
	"github.com/mamadbah2/dispatch/pkg/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Digest.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	store, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	pool, err := worker.NewPool(context.Background(), cfg.Notify.Workers, baseLogger.Named("worker"), worker.Nonblocking())
	if err != nil {
		baseLogger.Fatal("failed to init worker pool", zap.Error(err))
	}
	defer pool.Shutdown(10 * time.Second)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Enabled() {
		notifier = notify.NewChatNotifier(telegram.NewClient(cfg.Telegram), cfg.Telegram.ChatID, pool, baseLogger.Named("notify.telegram"))
		baseLogger.Info("telegram notifications enabled")
	} else {
		baseLogger.Warn("telegram bot token or chat id missing, notifications disabled")
	}

	var journalOpts []journalsvc.Option
	if cfg.Sheets.Enabled() {
		writer, err := sheets.NewGoogleSheetWriter(context.Background(), cfg.Sheets)
		if err != nil {
			baseLogger.Fatal("failed to init sheets writer", zap.Error(err))
		}
		mirror := sheets.NewJournalMirror(writer, cfg.Sheets.JournalRange, baseLogger.Named("repo.sheets"))
		journalOpts = append(journalOpts, journalsvc.WithExporter(mirror, pool))
		baseLogger.Info("activity mirror to google sheets enabled")
	}

	journal := journalsvc.NewService(store, notifier, baseLogger.Named("svc.journal"), journalOpts...)
	scheduleSvc := schedulesvc.NewService(store, store, journal, baseLogger.Named("svc.schedule"))
	orderSvc := ordersvc.NewService(store, store, journal, baseLogger.Named("svc.orders"))
	reportingSvc := reportingsvc.NewService(scheduleSvc, loc, baseLogger.Named("svc.reporting"))
	authz := auth.NewSharedSecret(cfg.Admin.Password)

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Handlers{
		Auth:     handlers.NewAuthHandler(authz, baseLogger.Named("handlers.auth")),
		Orders:   handlers.NewOrderHandler(orderSvc, baseLogger.Named("handlers.orders")),
		Schedule: handlers.NewScheduleHandler(scheduleSvc, reportingSvc, loc, baseLogger.Named("handlers.schedule")),
		Activity: handlers.NewActivityHandler(journal, baseLogger.Named("handlers.activity")),
	}, authz, router.Options{AllowedOrigins: cfg.Server.CORSAllowedOrigins}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Digest, reportingSvc, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return mongodb.NewRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
}
