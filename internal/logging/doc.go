// Package logging provides a simple leveled logging interface for the
// video library service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to DEBUG with DEBUG=true. SetupFileOutput additionally tees all
// output into a size-rotated file when LOG_FILE is configured.
package logging
