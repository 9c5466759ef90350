package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tradebooks/internal/app"
	"github.com/MrJamesThe3rd/tradebooks/internal/config"
	booksHttp "github.com/MrJamesThe3rd/tradebooks/internal/http"
	documentHandler "github.com/MrJamesThe3rd/tradebooks/internal/http/document"
	importHandler "github.com/MrJamesThe3rd/tradebooks/internal/http/importcsv"
	inventoryHandler "github.com/MrJamesThe3rd/tradebooks/internal/http/inventory"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("app", cfg.App.Name)
	slog.SetDefault(logger)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		documentH  = documentHandler.NewHandler(a.Documents)
		inventoryH = inventoryHandler.NewHandler(a.Store)
		importH    = importHandler.NewHandler(a.Importer, a.Documents)
	)

	router := booksHttp.New(booksHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	}, documentH, inventoryH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port, "store", cfg.Store.Driver)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
