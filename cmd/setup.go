package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/filtering"
	"github.com/spigell/listing-advisor/internal/inventory"
	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/secrets"
	"github.com/spigell/listing-advisor/internal/storage/postgres"
	"github.com/spigell/listing-advisor/internal/storage/sqlite"
	"github.com/spigell/listing-advisor/internal/widening"
)

// store is a listing inventory that can also be written to.
type store interface {
	widening.Searcher
	EnsureSchema(ctx context.Context) error
	UpsertMany(ctx context.Context, items []listing.Listing) (int, error)
}

// loadProfile returns the buyer profile from a dedicated yaml file or the profile section of the config.
func loadProfile(path string, config *Config) (*listing.BuyerProfile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if config.Profile == nil {
			return nil, fmt.Errorf("buyer profile is not configured")
		}
		return config.Profile, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	// Accept both a bare profile and one nested under "profile".
	if v.IsSet("profile") {
		v = v.Sub("profile")
	}

	var p listing.BuyerProfile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decode profile file %q: %w", path, err)
	}
	return &p, nil
}

func newSearcher(ctx context.Context, config *Config, logger *zap.Logger) (widening.Searcher, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(config.Storage.Driver))
	switch driver {
	case "", DriverAPI:
		token, err := secrets.Load(secrets.Source{
			Name:     "inventory token",
			Value:    config.Inventory.Token,
			File:     config.Inventory.TokenFile,
			Optional: true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set inventory.token-file or LISTING_ADVISOR_TOKEN_FILE)", err)
		}

		client, err := inventory.New(logger.Named("inventory"), config.Inventory, token)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	case DriverSQLite, DriverPostgres:
		s, closeFn, err := openStore(ctx, config)
		if err != nil {
			return nil, nil, err
		}
		return s, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", config.Storage.Driver)
	}
}

func openStore(ctx context.Context, config *Config) (store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(config.Storage.Driver)) {
	case DriverSQLite:
		path := strings.TrimSpace(config.Storage.SQLite)
		if path == "" {
			return nil, nil, fmt.Errorf("storage.sqlite path is required for the sqlite driver")
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return sqliteStore{s}, func() { _ = s.Close() }, nil
	case DriverPostgres:
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: config.Storage.Postgres.DSN,
			File:  config.Storage.Postgres.DSNFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set storage.postgres.dsn-file or LISTING_ADVISOR_PG_DSN_FILE)", err)
		}
		s, err := postgres.Open(ctx, dsn, config.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("storage driver %q cannot store listings", config.Storage.Driver)
	}
}

// sqliteStore reports how many rows an upsert touched, like the postgres store does.
type sqliteStore struct {
	*sqlite.Store
}

func (s sqliteStore) UpsertMany(ctx context.Context, items []listing.Listing) (int, error) {
	if err := s.Store.UpsertMany(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func prepareFilters(config *Config) []filtering.Filter {
	steps := filtering.Default()
	if config.Filters.Dealbreakers {
		filtering.Enable(steps, "dealbreakers")
	}
	return steps
}
