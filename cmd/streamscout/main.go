package main

import (
	"context"

	"github.com/amaumene/streamscout/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	application, err := app.New(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Fatal("application exited with error")
	}
}
