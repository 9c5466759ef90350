package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/tradebooks/internal/config"
	"github.com/MrJamesThe3rd/tradebooks/internal/database"
	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/document/dynamostore"
	"github.com/MrJamesThe3rd/tradebooks/internal/document/memstore"
	"github.com/MrJamesThe3rd/tradebooks/internal/document/store"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
	"github.com/MrJamesThe3rd/tradebooks/internal/lineimport"
)

// Store is what every persistence driver offers: the document port plus a
// way to seed the inventory catalog.
type Store interface {
	document.Repository
	PutItem(ctx context.Context, item inventory.Item) error
}

// App holds the wired components shared by the API server and the CLI.
type App struct {
	Config    *config.Config
	Store     Store
	Documents *document.Service
	Importer  *lineimport.Parser

	db *sql.DB
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		if cfg.Store.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}

		a.db = db
		a.Store = store.New(db)
	case config.DriverDynamoDB:
		client, err := database.NewDynamoDB(ctx, database.DynamoDBOptions{
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}

		a.Store = dynamostore.New(client, dynamostore.Tables{
			Documents: cfg.DynamoDB.DocumentsTable,
			Inventory: cfg.DynamoDB.InventoryTable,
			Counters:  cfg.DynamoDB.CountersTable,
		})
	case config.DriverMemory:
		a.Store = memstore.New()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	opts, err := ServiceOptions(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Documents = document.NewService(a.Store, opts...)
	a.Importer = lineimport.NewParser(a.Store)

	logger.Info("store ready", "driver", cfg.Store.Driver)

	return a, nil
}

// ServiceOptions turns the documents section of the config into service
// options.
func ServiceOptions(cfg *config.Config, logger *slog.Logger) ([]document.Option, error) {
	rounding, err := document.ParseRounding(cfg.Documents.Rounding)
	if err != nil {
		return nil, err
	}

	policy, err := inventory.PolicyByName(cfg.Documents.MatchPolicy)
	if err != nil {
		return nil, err
	}

	return []document.Option{
		document.WithCalculator(document.NewCalculator(rounding)),
		document.WithMatchPolicy(policy),
		document.WithNetTerms(cfg.Documents.NetTermsDays),
		document.WithEstimateValidity(cfg.Documents.EstimateValidityDays),
		document.WithNumberPrefixes(cfg.Documents.EstimatePrefix, cfg.Documents.InvoicePrefix),
		document.WithLogger(logger),
	}, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}

	return nil
}
