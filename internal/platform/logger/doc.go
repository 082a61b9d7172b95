// Package logger provides structured logging for the application.
//
// It builds log/slog loggers writing JSON (the default) or colourised console
// output, and carries request- and job-scoped loggers through a context.
package logger
