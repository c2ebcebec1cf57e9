package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"video-library/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	LibraryDir string
	Port       string

	MaxConcurrentDownloads  int
	DefaultDownloadCategory string

	FFprobePath string
	FFmpegPath  string
	YTDLPPath   string

	LogFile         logging.FileConfig
	LogStaticFiles  bool
	LogHealthChecks bool

	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration

	// Derived paths
	VideosDir     string
	ThumbnailsDir string

	// Tool availability, informational only
	FFprobeAvailable bool
	FFmpegAvailable  bool
	YTDLPAvailable   bool
}

// LoadConfig loads configuration from environment variables, prepares the
// library directories and checks for the external tools.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}
	logConfig(config)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")
	if err := setupLibraryDirs(config); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL TOOLS")
	logging.Info("------------------------------------------------------------")
	config.FFprobeAvailable = checkTool("ffprobe", config.FFprobePath, "-version")
	config.FFmpegAvailable = checkTool("ffmpeg", config.FFmpegPath, "-version")
	config.YTDLPAvailable = checkTool("yt-dlp", config.YTDLPPath, "--version")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Metadata synthesis: %s", enabledString(config.FFprobeAvailable))
	logging.Info("    Thumbnails:         %s", enabledString(config.FFmpegAvailable))
	logging.Info("    Acquisition:        %s", enabledString(config.YTDLPAvailable))

	return config, nil
}

// configFromEnv reads and validates the environment without touching the filesystem.
func configFromEnv() (*Config, error) {
	libraryDir, err := filepath.Abs(getEnv("LIBRARY_DIR", "/library"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory path: %w", err)
	}

	config := &Config{
		LibraryDir:              libraryDir,
		Port:                    getEnv("PORT", "8080"),
		MaxConcurrentDownloads:  getEnvInt("MAX_CONCURRENT_DOWNLOADS", 2),
		DefaultDownloadCategory: getEnv("DEFAULT_DOWNLOAD_CATEGORY", "youtube"),
		FFprobePath:             getEnv("FFPROBE_PATH", "ffprobe"),
		FFmpegPath:              getEnv("FFMPEG_PATH", "ffmpeg"),
		YTDLPPath:               getEnv("YTDLP_PATH", "yt-dlp"),
		LogFile: logging.FileConfig{
			Path:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 28),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		RateLimitRPS:    getEnvFloat("API_RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getEnvInt("API_RATE_LIMIT_BURST", 20),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		VideosDir:       filepath.Join(libraryDir, "videos"),
		ThumbnailsDir:   filepath.Join(libraryDir, "thumbnails"),
	}

	if config.MaxConcurrentDownloads < 1 {
		logging.Warn("  MAX_CONCURRENT_DOWNLOADS must be at least 1, using 1")
		config.MaxConcurrentDownloads = 1
	}
	if strings.ContainsAny(config.DefaultDownloadCategory, `/\`) ||
		config.DefaultDownloadCategory == "." || config.DefaultDownloadCategory == ".." {
		return nil, fmt.Errorf("DEFAULT_DOWNLOAD_CATEGORY %q must be a single directory name", config.DefaultDownloadCategory)
	}
	if _, err := strconv.Atoi(config.Port); err != nil {
		return nil, fmt.Errorf("PORT %q is not a number", config.Port)
	}

	return config, nil
}

func logConfig(config *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  LIBRARY_DIR:               %s", config.LibraryDir)
	logging.Info("  PORT:                      %s", config.Port)
	logging.Info("  MAX_CONCURRENT_DOWNLOADS:  %d", config.MaxConcurrentDownloads)
	logging.Info("  DEFAULT_DOWNLOAD_CATEGORY: %s", config.DefaultDownloadCategory)
	logging.Info("  FFPROBE_PATH:              %s", config.FFprobePath)
	logging.Info("  FFMPEG_PATH:               %s", config.FFmpegPath)
	logging.Info("  YTDLP_PATH:                %s", config.YTDLPPath)
	logging.Info("  API_RATE_LIMIT_RPS:        %g (burst %d)", config.RateLimitRPS, config.RateLimitBurst)
	logging.Info("  SHUTDOWN_TIMEOUT:          %s", config.ShutdownTimeout)
	logging.Info("  LOG_STATIC_FILES:          %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:         %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                 %s", logging.GetLevel())
	if config.LogFile.Path != "" {
		logging.Info("  LOG_FILE:                  %s (max %d MB, %d backups, %d days)",
			config.LogFile.Path, config.LogFile.MaxSizeMB, config.LogFile.MaxBackups, config.LogFile.MaxAgeDays)
	}
}

// setupLibraryDirs creates the videos and thumbnails roots. The videos root
// must exist; an unwritable thumbnails root only disables new thumbnails.
func setupLibraryDirs(config *Config) error {
	logging.Info("  Library directory: %s", config.LibraryDir)

	if err := ensureDirectory(config.VideosDir, "videos"); err != nil {
		return fmt.Errorf("videos directory error: %w", err)
	}
	if err := testWriteAccess(config.VideosDir); err != nil {
		logging.Warn("  Videos directory is not writable: %v", err)
		logging.Warn("  Sidecar synthesis and downloads will fail")
	} else {
		logging.Info("  [OK] Videos directory is writable")
	}

	if err := ensureDirectory(config.ThumbnailsDir, "thumbnails"); err != nil {
		logging.Warn("  Thumbnails directory issue: %v", err)
		return nil
	}
	if err := testWriteAccess(config.ThumbnailsDir); err != nil {
		logging.Warn("  Thumbnails directory is not writable: %v", err)
		return nil
	}
	logging.Info("  [OK] Thumbnails directory is writable")
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogLibraryInit logs the library roots.
func LogLibraryInit(videosDir, thumbnailsDir string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LIBRARY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Videos:     %s", videosDir)
	logging.Info("  Thumbnails: %s", thumbnailsDir)
}

// LogJobManagerInit logs acquisition settings.
func LogJobManagerInit(maxConcurrent int, defaultCategory string, available bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOB MANAGER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Max concurrent downloads: %d", maxConcurrent)
	logging.Info("  Default category:         %s", defaultCategory)
	if !available {
		logging.Warn("  yt-dlp not found; queued jobs will fail when they start")
	}
}

// LogJobManagerStarted logs successful job manager start
func LogJobManagerStarted() {
	logging.Info("  [OK] Job manager started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level, grouped by prefix.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Thumbnail logging: ON")
	} else {
		logging.Info("    Thumbnail logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup maps /api/videos/{id} to "api/videos" and /healthz to "healthz".
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	first, rest, _ := strings.Cut(path, "/")

	if first == "api" && rest != "" {
		sub, _, _ := strings.Cut(rest, "/")
		return "api/" + sub
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	logging.Info("    Health:        http://0.0.0.0:%s/healthz", config.Port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 __     ___     _               _     _ _
 \ \   / (_) __| | ___  ___    | |   (_) |__  _ __ __ _ _ __ _   _
  \ \ / /| |/ _' |/ _ \/ _ \   | |   | | '_ \| '__/ _' | '__| | | |
   \ V / | | (_| |  __/ (_) |  | |___| | |_) | | | (_| | |  | |_| |
    \_/  |_|\__,_|\___|\___/   |_____|_|_.__/|_|  \__,_|_|   \__, |
                                                             |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "videos" && logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				}
			}
			logging.Debug("    Contents: %d categories, %d top-level entries", dirCount, len(entries))
		}
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// checkTool reports whether an external binary resolves and answers its
// version flag. A missing tool is logged, never fatal.
func checkTool(name, path, versionArg string) bool {
	resolved, err := exec.LookPath(path)
	if err != nil {
		logging.Warn("  %s not found (%s): %v", name, path, err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	//nolint:gosec // G204: the binary path comes from operator configuration.
	output, err := exec.CommandContext(ctx, resolved, versionArg).Output()
	if err != nil {
		logging.Warn("  %s at %s did not report a version: %v", name, resolved, err)
		return false
	}

	version, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	logging.Info("  [OK] %-8s %s", name, resolved)
	logging.Debug("       %s", version)
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
