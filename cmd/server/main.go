package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/realtoken-app/go-realtoken/server"
	"github.com/realtoken-app/go-realtoken/service/logger"
	sentryutil "github.com/realtoken-app/go-realtoken/service/sentry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer sentryutil.RecoverAndRaise(ctx)

	router, processor := server.Init(ctx)
	processor.Start(ctx)

	if err := server.Run(ctx, router); err != nil {
		logger.For(ctx).WithError(err).Error("server exited with error")
	}
}
