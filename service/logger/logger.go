package logger

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type loggerContextKey struct{}

var defaultLogger = logrus.New()

// SetLoggerOptions configures the package-level logger
func SetLoggerOptions(optionsF func(logger *logrus.Logger)) {
	optionsF(defaultLogger)
}

// InitWithGCPDefaults configures the logger for a GCP-hosted environment: JSON output
// with severity levels the log ingester understands.
func InitWithGCPDefaults() {
	SetLoggerOptions(func(logger *logrus.Logger) {
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
		})
	})
}

// NewContextWithFields returns a context whose logger carries the given fields in
// addition to any fields already present.
func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	entry := For(parent).WithFields(fields)
	return context.WithValue(parent, loggerContextKey{}, entry)
}

// For returns the log entry associated with ctx, falling back to the package-level
// logger when ctx is nil or carries no entry. gin contexts are unwrapped.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}

	if gc, ok := ctx.(*gin.Context); ok {
		ctx = gc.Request.Context()
	}

	if entry, ok := ctx.Value(loggerContextKey{}).(*logrus.Entry); ok {
		return entry
	}

	return logrus.NewEntry(defaultLogger)
}
