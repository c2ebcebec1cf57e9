// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - LIBRARY_DIR: Library root holding videos/ and thumbnails/ (default: /library)
//   - PORT: HTTP server port, also serving /metrics (default: 8080)
//   - MAX_CONCURRENT_DOWNLOADS: Concurrent yt-dlp fetches (default: 2)
//   - DEFAULT_DOWNLOAD_CATEGORY: Category for jobs without one (default: youtube)
//   - FFPROBE_PATH, FFMPEG_PATH, YTDLP_PATH: External tool binaries
//   - API_RATE_LIMIT_RPS, API_RATE_LIMIT_BURST: Budget for mutating API calls (default: 10, 20)
//   - SHUTDOWN_TIMEOUT: Graceful shutdown budget as Go duration (default: 30s)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_FILE: Optional rotated log file, tuned by LOG_FILE_MAX_SIZE_MB,
//     LOG_FILE_MAX_BACKUPS, LOG_FILE_MAX_AGE_DAYS and LOG_FILE_COMPRESS
//   - LOG_STATIC_FILES: Log thumbnail requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Directory Setup
//
// The videos root is created when missing and must be a directory. The
// thumbnails root is created when possible; write problems are warnings.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
