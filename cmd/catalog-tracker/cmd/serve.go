package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jmhart/catalog-tracker/api/openapi"
	"github.com/jmhart/catalog-tracker/internal/api/handlers"
	"github.com/jmhart/catalog-tracker/internal/api/middleware"
	"github.com/jmhart/catalog-tracker/internal/config"
	"github.com/jmhart/catalog-tracker/internal/engine"
	"github.com/jmhart/catalog-tracker/internal/feed"
	"github.com/jmhart/catalog-tracker/internal/store"
	"github.com/jmhart/catalog-tracker/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	detector := engine.NewDetector(st,
		engine.WithDetectorLogger(log),
		engine.WithRetry(cfg.Detector.MaxRetries, cfg.Detector.RetryBackoff),
	)

	eng := engine.NewEngine(st, detector,
		engine.WithLogger(log),
		engine.WithBatchRate(cfg.Jobs.BatchesPerSecond, cfg.Jobs.BatchBurst),
	)

	feedClient := feed.NewHTTPClient(
		feed.WithAPIKey(cfg.Feed.APIKey),
		feed.WithHTTPClient(&http.Client{Timeout: cfg.Feed.Timeout}),
	)
	factory := feed.NewFactory(feedClient, cfg.Feed.PageSize, log)

	coord := engine.NewCoordinator(st, eng, factory, cfg.Jobs.MaxConcurrent, log)

	schedules := make([]engine.ClientSchedule, 0, len(cfg.Clients))
	for i := range cfg.Clients {
		c := &cfg.Clients[i]
		schedules = append(schedules, engine.ClientSchedule{
			Client: c.Name,
			Spec:   c.Schedule,
			Config: c.RunConfig(),
		})
	}

	sched, err := engine.NewScheduler(
		st,
		coord,
		schedules,
		time.Duration(cfg.Retention.MaxAgeDays)*24*time.Hour,
		cfg.Retention.CleanupInterval,
		cfg.Jobs.StaleRunTimeout,
		log,
	)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}
	sched.Start(ctx)

	e := buildServer(st, coord, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		srv := &http.Server{
			Addr:         addr,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	<-sched.Stop().Done()
	coord.Wait()

	log.Info("server stopped")
	return nil
}

func buildServer(st *store.PostgresStore, coord *engine.Coordinator, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Recovery(log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(st)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Catalog Tracker API", Version))
	handlers.RegisterChangeRoutes(api, handlers.NewChangesHandler(st))
	handlers.RegisterSummaryRoutes(api, handlers.NewSummaryHandler(st))
	handlers.RegisterRunRoutes(api, handlers.NewRunsHandler(st))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(coord))
	handlers.RegisterCleanupRoutes(api, handlers.NewCleanupHandler(st))
	handlers.RegisterExportRoutes(e, handlers.NewExportHandler(st))

	openapi.RegisterRoutes(e)

	return e
}
