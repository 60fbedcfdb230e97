package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/schedule-browser/api/swagger"
	"github.com/noah-isme/schedule-browser/internal/handler"
	"github.com/noah-isme/schedule-browser/internal/repository"
	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	"github.com/noah-isme/schedule-browser/pkg/config"
	"github.com/noah-isme/schedule-browser/pkg/logger"
)

// @title Schedule Browser
// @version 0.1.0
// @description Local API driving a timetable browsing session
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	metrics := service.NewMetricsService()
	credentials := service.NewCredentialService(cfg.Auth, clk, logr)
	if _, ok := credentials.Token(ctx); !ok {
		logr.Warn("no credential configured; the timetable service will reject requests", zap.String("token_file", cfg.Auth.TokenFile))
	} else if credentials.ExpiresWithin(ctx, time.Hour) {
		logr.Warn("credential expires within an hour")
	}

	client := repository.NewCollectionClient(cfg.API, nil, credentials, metrics, logr.Named("collections"))
	store := service.NewFilterStore(validator.New(), logr.Named("filters"))

	var stream *handler.StreamHub
	var onUpdate func(service.ListSnapshot)
	if cfg.Stream.Enabled {
		stream = handler.NewStreamHub(cfg.CORS.AllowedOrigins, cfg.Stream.PingInterval, logr.Named("stream"))
		onUpdate = stream.PublishList
	}

	list := service.NewListController(store, repository.NewScheduleRepository(client), service.ListControllerConfig{
		PerPage: cfg.Browse.PerPage,
		Context: ctx,
		Metrics: metrics,
		OnUnauthorized: func(err error) {
			logr.Warn("session rejected by timetable service; sign in again", zap.Error(err))
		},
		OnUpdate: onUpdate,
		Logger:   logr.Named("schedules"),
	})
	defer list.Close()

	dialogs := service.NewDialogManager(store,
		repository.NewTeacherRepository(client),
		repository.NewClassRepository(client),
		repository.NewSubjectRepository(client),
		service.DialogConfig{
			ReferencePerPage: cfg.Browse.ReferencePerPage,
			Debounce:         cfg.Browse.SearchDebounce,
			IdleTTL:          cfg.Browse.DialogIdleTTL,
			Clock:            clk,
			Context:          ctx,
			Metrics:          metrics,
			Logger:           logr.Named("dialogs"),
		},
	)
	defer dialogs.CloseAll()

	exports := service.NewExportService(list, cfg.Exports, clk, logr.Named("exports"), service.ExportRenderers{})

	router := handler.NewRouter(handler.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		EnableExport:   cfg.Exports.Enabled,
		RateLimit:      cfg.RateLimit,
	}, handler.Handlers{
		Schedules: handler.NewScheduleHandler(list),
		Filters:   handler.NewFilterHandler(store),
		Dialogs:   handler.NewDialogHandler(dialogs),
		Exports:   handler.NewExportHandler(exports),
		Session:   handler.NewSessionHandler(credentials),
		Metrics:   handler.NewMetricsHandler(metrics, credentials),
		Stream:    stream,
	}, metrics, logr)

	list.Start()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"upstream", cfg.API.BaseURL+cfg.API.Prefix,
		"per_page", cfg.Browse.PerPage,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Info("server stopped")
}
