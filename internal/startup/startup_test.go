package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SET_VAR", "custom")
	t.Setenv("TEST_EMPTY_VAR", "")

	if got := getEnv("TEST_SET_VAR", "default"); got != "custom" {
		t.Errorf("getEnv(set) = %q, want custom", got)
	}
	if got := getEnv("TEST_EMPTY_VAR", "default"); got != "default" {
		t.Errorf("getEnv(empty) = %q, want default", got)
	}
	if got := getEnv("TEST_UNSET_VAR_VIDEO", "default"); got != "default" {
		t.Errorf("getEnv(unset) = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"unset keeps default true", "", true, true},
		{"unset keeps default false", "", false, false},
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"one", "1", false, true},
		{"zero", "0", true, false},
		{"invalid keeps default", "sometimes", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		envValue string
		want     int
	}{
		{"", 7},
		{"3", 3},
		{" 12 ", 12},
		{"-1", -1},
		{"two", 7},
	}
	for _, tt := range tests {
		t.Setenv("TEST_INT", tt.envValue)
		if got := getEnvInt("TEST_INT", 7); got != tt.want {
			t.Errorf("getEnvInt(%q) = %d, want %d", tt.envValue, got, tt.want)
		}
	}
}

func TestGetEnvFloatAndDuration(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	if got := getEnvFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvFloat = %v, want 2.5", got)
	}
	t.Setenv("TEST_FLOAT", "fast")
	if got := getEnvFloat("TEST_FLOAT", 1); got != 1 {
		t.Errorf("getEnvFloat(invalid) = %v, want 1", got)
	}

	t.Setenv("TEST_DURATION", "45s")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != 45*time.Second {
		t.Errorf("getEnvDuration = %v, want 45s", got)
	}
	t.Setenv("TEST_DURATION", "-5s")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration(negative) = %v, want 1m", got)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LIBRARY_DIR", "PORT", "MAX_CONCURRENT_DOWNLOADS", "DEFAULT_DOWNLOAD_CATEGORY",
		"FFPROBE_PATH", "FFMPEG_PATH", "YTDLP_PATH", "LOG_FILE", "LOG_STATIC_FILES",
		"LOG_HEALTH_CHECKS", "API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	clearConfigEnv(t)

	config, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv: %v", err)
	}

	if config.LibraryDir != filepath.Clean("/library") {
		t.Errorf("LibraryDir = %q", config.LibraryDir)
	}
	if config.VideosDir != filepath.Join("/library", "videos") || config.ThumbnailsDir != filepath.Join("/library", "thumbnails") {
		t.Errorf("derived dirs = %q, %q", config.VideosDir, config.ThumbnailsDir)
	}
	if config.Port != "8080" {
		t.Errorf("Port = %q, want 8080", config.Port)
	}
	if config.MaxConcurrentDownloads != 2 {
		t.Errorf("MaxConcurrentDownloads = %d, want 2", config.MaxConcurrentDownloads)
	}
	if config.DefaultDownloadCategory != "youtube" {
		t.Errorf("DefaultDownloadCategory = %q", config.DefaultDownloadCategory)
	}
	if config.YTDLPPath != "yt-dlp" || config.FFprobePath != "ffprobe" || config.FFmpegPath != "ffmpeg" {
		t.Error("unexpected default tool paths")
	}
	if config.RateLimitRPS != 10 || config.RateLimitBurst != 20 {
		t.Errorf("rate limit = %v/%d", config.RateLimitRPS, config.RateLimitBurst)
	}
	if config.LogFile.Path != "" {
		t.Errorf("LogFile.Path = %q, want empty", config.LogFile.Path)
	}
	if !config.LogHealthChecks || config.LogStaticFiles {
		t.Error("unexpected logging defaults")
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	t.Setenv("LIBRARY_DIR", dir)
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "0")
	t.Setenv("DEFAULT_DOWNLOAD_CATEGORY", "lectures")
	t.Setenv("LOG_FILE", filepath.Join(dir, "logs", "server.log"))

	config, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv: %v", err)
	}
	if config.VideosDir != filepath.Join(dir, "videos") {
		t.Errorf("VideosDir = %q", config.VideosDir)
	}
	if config.Port != "9000" {
		t.Errorf("Port = %q", config.Port)
	}
	if config.MaxConcurrentDownloads != 1 {
		t.Errorf("MaxConcurrentDownloads = %d, want clamp to 1", config.MaxConcurrentDownloads)
	}
	if config.DefaultDownloadCategory != "lectures" {
		t.Errorf("DefaultDownloadCategory = %q", config.DefaultDownloadCategory)
	}
	if config.LogFile.Path == "" || config.LogFile.MaxSizeMB != 100 {
		t.Errorf("LogFile = %+v", config.LogFile)
	}
}

func TestConfigFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_DOWNLOAD_CATEGORY", "a/b"},
		{"DEFAULT_DOWNLOAD_CATEGORY", ".."},
		{"PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := configFromEnv(); err == nil {
				t.Errorf("expected an error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestSetupLibraryDirs(t *testing.T) {
	dir := t.TempDir()
	config := &Config{
		LibraryDir:    dir,
		VideosDir:     filepath.Join(dir, "videos"),
		ThumbnailsDir: filepath.Join(dir, "thumbnails"),
	}

	if err := setupLibraryDirs(config); err != nil {
		t.Fatalf("setupLibraryDirs: %v", err)
	}
	for _, d := range []string{config.VideosDir, config.ThumbnailsDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("%s was not created: %v", d, err)
		}
		if _, err := os.Stat(filepath.Join(d, ".write-test")); !os.IsNotExist(err) {
			t.Errorf("write test file left behind in %s", d)
		}
	}
}

func TestSetupLibraryDirsRejectsFile(t *testing.T) {
	dir := t.TempDir()
	videos := filepath.Join(dir, "videos")
	if err := os.WriteFile(videos, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := setupLibraryDirs(&Config{LibraryDir: dir, VideosDir: videos, ThumbnailsDir: filepath.Join(dir, "thumbnails")})
	if err == nil {
		t.Fatal("expected an error when the videos root is a file")
	}
}

func TestCheckToolMissing(t *testing.T) {
	if checkTool("yt-dlp", filepath.Join(t.TempDir(), "no-such-binary"), "--version") {
		t.Error("checkTool reported a missing binary as available")
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/videos/{id}/stream": "api/videos",
		"/api/jobs":               "api/jobs",
		"/healthz":                "healthz",
		"/":                       "",
		"/api":                    "api",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	router := mux.NewRouter()
	router.HandleFunc("/healthz", noop).Methods(http.MethodGet).Name("health")
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jobs", noop).Methods(http.MethodGet, http.MethodPost)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}

	seen := map[string]bool{}
	for _, r := range routes {
		seen[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{"GET /healthz", "GET /api/jobs", "POST /api/jobs", "* /api"} {
		if !seen[want] {
			t.Errorf("missing route %q in %v", want, routes)
		}
	}
}
