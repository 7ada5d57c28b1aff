package sentryutil

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/service/logger"
)

const ginContextHubKey = "sentry.hub"

const flushWait = 2 * time.Second

// SetHubOnContext attaches a sentry hub to a gin context so downstream handlers and
// ReportError can find it.
func SetHubOnContext(c *gin.Context, hub *sentry.Hub) {
	c.Set(ginContextHubKey, hub)
}

// ReportError reports an error to sentry using the hub associated with ctx, falling
// back to the global hub when none is attached.
func ReportError(ctx context.Context, err error) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		hub.CaptureException(err)
	})
}

// RecoverAndRaise reports a panic to sentry and re-raises it so the process-level
// handler still sees it. Intended for use with defer at goroutine entrypoints.
func RecoverAndRaise(ctx context.Context) {
	if r := recover(); r != nil {
		hub := sentry.CurrentHub()
		if ctx != nil {
			if h := SentryHubFromContext(ctx); h != nil {
				hub = h
			}
		}
		if hub != nil {
			logger.For(ctx).Errorf("unhandled panic, reporting to sentry: %v", r)
			hub.Recover(r)
			hub.Flush(flushWait)
		}
		panic(r)
	}
}

// SentryHubFromContext returns the sentry hub attached to ctx, unwrapping gin contexts
// along the way. Returns nil when no hub is attached.
func SentryHubFromContext(ctx context.Context) *sentry.Hub {
	if gc, ok := ctx.(*gin.Context); ok {
		if hub, ok := gc.Value(ginContextHubKey).(*sentry.Hub); ok {
			return hub
		}
		ctx = gc.Request.Context()
	}
	return sentry.GetHubFromContext(ctx)
}
