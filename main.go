package main

import (
	// standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// third-party
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	// internal
	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/config"
	"github.com/livecommerce/console/internal/dashboard"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/emotion"
	"github.com/livecommerce/console/internal/handlers"
	"github.com/livecommerce/console/internal/lifecycle"
	"github.com/livecommerce/console/internal/logging"
	"github.com/livecommerce/console/internal/middleware"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
	"github.com/livecommerce/console/internal/state"
	"github.com/livecommerce/console/internal/validation"
	"github.com/livecommerce/console/internal/version"
	"github.com/livecommerce/console/internal/video"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}

	settings := config.Load()
	logging.Setup(os.Stderr, settings.LogLevel, settings.LogFormat)
	logging.InfoWithComponent(logging.ComponentStartup, "Starting live commerce console", "version", version.String(), "backend", settings.BackendURL)

	if err := config.ValidateBackendURL(settings.BackendURL); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid BACKEND_URL", "url", settings.BackendURL, "error", err)
		os.Exit(1)
	}

	// Job ledger
	if err := database.Initialize(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	jobs := database.NewJobService(database.DB)
	if n, err := jobs.AbandonRunning(); err != nil {
		logging.WarnWithComponent(logging.ComponentStartup, "Failed to close jobs left running", "error", err)
	} else if n > 0 {
		logging.InfoWithComponent(logging.ComponentStartup, "Marked jobs from the previous run as cancelled", "count", n)
	}

	vocab, err := emotion.Load(settings.EmotionStylesFile)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to load emotion styles", "file", settings.EmotionStylesFile, "error", err)
		os.Exit(1)
	}

	api := backend.New(settings.BackendURL, settings.BackendTimeout)
	appState := state.New()
	sseService := sse.NewService()
	alerts := sse.NewAlerter(sseService, settings.AlertDismissAfter)
	pollerManager := pollers.NewManager()

	loader := dashboard.NewLoader(api, appState)
	controller := lifecycle.New(lifecycle.Config{
		PollInterval:        settings.MP3PollInterval,
		PollMaxAttempts:     settings.MP3PollMaxAttempts,
		BulkPollInterval:    settings.BulkPollInterval,
		BulkPollMaxAttempts: settings.BulkPollMaxAttempts,
		ReconcileDelay:      settings.ReconcileDelay,
		CheckTimeout:        settings.BackendTimeout,
	}, lifecycle.Deps{
		Backend:    api,
		State:      appState,
		Reloader:   loader,
		Pollers:    pollerManager,
		Vocabulary: vocab,
		Notifier:   alerts,
		Jobs:       jobs,
	})

	videos := video.New(video.Config{
		StatusInterval: settings.DisplayStatusInterval,
		StartGrace:     settings.DisplayStartGrace,
	}, api, alerts)

	limiter := middleware.NewClientRateLimiter(settings.RateLimitPerMinute)

	pollerManager.Register(videos.StatusPoller())
	pollerManager.Register(dashboard.NewStatsPoller(loader, settings.StatsRefreshInterval))
	pollerManager.Register(pollers.NewBasePoller(pollers.HousekeepingConfig("job-prune", 6*time.Hour), func(ctx context.Context) error {
		n, err := jobs.PruneFinished(time.Now().Add(-settings.JobRetention))
		if err == nil && n > 0 {
			logging.InfoWithComponent(logging.ComponentDatabase, "Pruned finished generation jobs", "count", n)
		}
		return err
	}))
	pollerManager.Register(pollers.NewBasePoller(pollers.HousekeepingConfig("rate-limit-cleanup", 10*time.Minute), func(ctx context.Context) error {
		limiter.Cleanup()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pollerManager.Start(ctx); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start pollers", "error", err)
		os.Exit(1)
	}
	go sseService.KeepAlive(ctx, 30*time.Second)

	// Warm the caches; the console still starts when the backend is down.
	loadCtx, loadCancel := context.WithTimeout(ctx, settings.BackendTimeout)
	if err := loader.LoadAll(loadCtx); err != nil {
		logging.WarnWithComponent(logging.ComponentStartup, "Initial dashboard load failed", "error", err)
	}
	if _, err := videos.LoadVideos(loadCtx); err != nil {
		logging.WarnWithComponent(logging.ComponentStartup, "Initial video load failed", "error", err)
	}
	loadCancel()

	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(settings.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = settings.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control"}
	router.Use(cors.New(corsConfig))

	h := &handlers.Handler{
		Settings:  settings,
		API:       api,
		State:     appState,
		Loader:    loader,
		Renderer:  dashboard.NewRenderer(appState, vocab, controller),
		Lifecycle: controller,
		Videos:    videos,
		SSE:       sseService,
		Alerts:    alerts,
		Jobs:      jobs,
		Pollers:   pollerManager,
		Vocab:     vocab,
		Validator: validation.NewScriptValidator(vocab),
	}
	h.RegisterRoutes(router, limiter.RateLimit(), middleware.RequestSizeLimit(settings.MaxBodyKB))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})

	addr := ":" + settings.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("[SHUTDOWN] Shutting down server, watches and pollers")

	if err := pollerManager.Stop(); err != nil {
		logging.Error("[SHUTDOWN] Error stopping pollers", "error", err)
	}
	controller.Close()
	cancel()
	sseService.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("[SHUTDOWN] Server forced to shutdown", "error", err)
	}

	logging.Info("[SHUTDOWN] Console stopped")
}
