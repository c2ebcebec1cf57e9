package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-library/internal/fetcher"
	"video-library/internal/filesystem"
	"video-library/internal/handlers"
	"video-library/internal/jobs"
	"video-library/internal/library"
	"video-library/internal/logging"
	"video-library/internal/metrics"
	"video-library/internal/middleware"
	"video-library/internal/probe"
	"video-library/internal/startup"
	"video-library/internal/streaming"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	logFile, err := logging.SetupFileOutput(config.LogFile)
	if err != nil {
		startup.LogFatal("Failed to open log file: %v", err)
	}

	// Metrics
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Library
	fsys := afero.NewOsFs()
	startup.LogLibraryInit(config.VideosDir, config.ThumbnailsDir)
	prober := probe.New(probe.Config{
		FFprobePath: config.FFprobePath,
		FFmpegPath:  config.FFmpegPath,
		Fs:          fsys,
	})
	lib, err := library.New(library.Options{
		Fs:            fsys,
		VideosDir:     config.VideosDir,
		ThumbnailsDir: config.ThumbnailsDir,
		Prober:        prober,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize library: %v", err)
	}

	// Job manager
	startup.LogJobManagerInit(config.MaxConcurrentDownloads, config.DefaultDownloadCategory, config.YTDLPAvailable)
	manager := jobs.NewManager(jobs.Config{
		MaxConcurrent:   config.MaxConcurrentDownloads,
		DefaultCategory: config.DefaultDownloadCategory,
	}, fetcher.NewYTDLP(fetcher.Config{Path: config.YTDLPPath}), lib)
	manager.Start()
	startup.LogJobManagerStarted()

	collector := metrics.NewCollector(manager, 15*time.Second)
	collector.Start()

	// Handlers and router
	h := handlers.New(lib, manager, streaming.NewService(fsys))
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	// WriteTimeout stays zero; stream copies enforce their own idle and write deadlines.
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		handleShutdown(srv, manager, collector, config.ShutdownTimeout)
		close(shutdownDone)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone

	if err := logFile.Close(); err != nil {
		logging.Warn("Failed to close log file: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check, version and metrics routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	rateLimit := middleware.DefaultRateLimitConfig()
	rateLimit.RequestsPerSecond = config.RateLimitRPS
	rateLimit.Burst = config.RateLimitBurst
	api.Use(middleware.RateLimit(rateLimit))

	// Library
	api.HandleFunc("/categories", h.ListCategories).Methods("GET")
	api.HandleFunc("/videos", h.ListVideos).Methods("GET")
	api.HandleFunc("/videos/{id}", h.GetVideo).Methods("GET")
	api.HandleFunc("/videos/{id}/stream", h.StreamVideo).Methods("GET")
	api.HandleFunc("/videos/{id}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/scan", h.ScanLibrary).Methods("POST")
	api.HandleFunc("/scan/{category}", h.ScanCategory).Methods("POST")

	// Acquisition jobs
	api.HandleFunc("/jobs", h.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.CancelJob).Methods("DELETE")

	return r
}

func handleShutdown(srv *http.Server, manager *jobs.Manager, collector *metrics.Collector, timeout time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Waiting for running downloads")
	done := make(chan struct{})
	go func() {
		manager.Close()
		close(done)
	}()
	select {
	case <-done:
		startup.LogShutdownStepComplete("Job manager stopped")
	case <-ctx.Done():
		logging.Warn("Running downloads did not finish before the shutdown timeout")
	}

	startup.LogShutdownComplete()
}
