package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/storage"
)

const defaultBatch = 200

type Config struct {
	DSN      string `mapstructure:"dsn"`
	DSNFile  string `mapstructure:"dsn-file"`
	Schema   string `mapstructure:"schema"`
	MaxConns int    `mapstructure:"max-conns"`
	// ViaBouncer switches to the simple protocol for pgbouncer in transaction mode.
	ViaBouncer bool `mapstructure:"via-bouncer"`
}

// Store is a listing inventory kept in postgres. It implements the widening searcher contract.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	pcfg.MaxConns = int32(maxConns)
	if cfg.ViaBouncer {
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{pool: pool, table: tableName(cfg.Schema)}, nil
}

func tableName(schema string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return "listings"
	}
	return pgx.Identifier{schema, "listings"}.Sanitize()
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+s.table+` (
  id TEXT PRIMARY KEY,
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  price DOUBLE PRECISION NOT NULL DEFAULT 0,
  bedrooms INTEGER,
  bathrooms DOUBLE PRECISION,
  sqft DOUBLE PRECISION,
  property_type TEXT NOT NULL DEFAULT '',
  year_built INTEGER,
  days_on_market INTEGER NOT NULL DEFAULT 0,
  payload JSONB NOT NULL
)`)
	return err
}

// UpsertMany stores listings in batches, replacing rows with the same id.
func (s *Store) UpsertMany(ctx context.Context, items []listing.Listing) (int, error) {
	total := 0
	for i := 0; i < len(items); i += defaultBatch {
		j := min(i+defaultBatch, len(items))

		b := &pgx.Batch{}
		for _, l := range items[i:j] {
			row, err := storage.Row(l)
			if err != nil {
				return total, err
			}
			b.Queue(`INSERT INTO `+s.table+` (`+storage.Columns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  address = EXCLUDED.address, city = EXCLUDED.city, state = EXCLUDED.state,
  price = EXCLUDED.price, bedrooms = EXCLUDED.bedrooms, bathrooms = EXCLUDED.bathrooms,
  sqft = EXCLUDED.sqft, property_type = EXCLUDED.property_type, year_built = EXCLUDED.year_built,
  days_on_market = EXCLUDED.days_on_market, payload = EXCLUDED.payload`, row...)
		}

		br := s.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("store listing %s: %w", items[k].ID, err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Store) Search(ctx context.Context, c listing.SearchCriteria) ([]listing.Listing, error) {
	query, args := storage.SearchQuery(s.table, c, storage.Dollar)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []listing.Listing{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		l, err := storage.Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
