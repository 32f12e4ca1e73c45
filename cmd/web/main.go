// Command web runs the StockPulse HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"stockpulse/internal/app"
	"stockpulse/internal/infrastructure"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Variables already set in the environment win over .env
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}
	defer infrastructure.CloseLogFile()

	ctx := context.Background()

	application, err := app.NewApplication(ctx)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("application_error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
