package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tradebooks/internal/app"
	"github.com/MrJamesThe3rd/tradebooks/internal/cli"
	"github.com/MrJamesThe3rd/tradebooks/internal/config"
)

func main() {
	_ = godotenv.Load()

	// Help output should not need a reachable store.
	skipInit := len(os.Args) < 2
	for _, a := range os.Args[1:] {
		if a == "-h" || a == "--help" || a == "help" {
			skipInit = true
			break
		}
	}

	ctx := context.Background()

	if !skipInit {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		slog.SetDefault(logger)

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		cli.SetApp(a)
	}

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
