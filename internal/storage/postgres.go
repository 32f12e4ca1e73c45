package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockpulse/internal/config"
	"stockpulse/pkg/contracts/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	id          UUID PRIMARY KEY,
	category    TEXT        NOT NULL,
	file_name   TEXT        NOT NULL,
	file_size   BIGINT      NOT NULL,
	checksum    TEXT        NOT NULL,
	sheet_count INTEGER     NOT NULL,
	row_count   INTEGER     NOT NULL,
	active      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	data        JSONB       NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS datasets_active_category ON datasets (category) WHERE active;
CREATE INDEX IF NOT EXISTS datasets_category_created ON datasets (category, created_at DESC);
`

const metaColumns = `id::text, category, file_name, file_size, checksum, sheet_count, row_count, active, created_at`

// PostgresStore keeps datasets in PostgreSQL. The normalized content is
// stored as JSONB next to its metadata.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects a pool with the configured limits, verifies the
// connection and creates the datasets table when missing.
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{
		pool:   pool,
		logger: logger.With(slog.String("component", "postgres_store")),
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store.logger.InfoContext(ctx, "connected_to_database",
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(cfg.MaxConns)))
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create datasets table: %w", err)
	}
	return nil
}

// Save implements Store. The previous active dataset of the category is
// deactivated in the same transaction.
func (s *PostgresStore) Save(ctx context.Context, raw domain.RawFile, processed *domain.ResultData, category domain.Category) (string, error) {
	if processed == nil {
		return "", ErrInvalidDataset
	}

	data, err := json.Marshal(processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset: %w", err)
	}
	meta := newMeta(uuid.NewString(), raw, processed, category)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if _, err := tx.Exec(ctx,
		`UPDATE datasets SET active = FALSE WHERE category = $1 AND active`, string(category)); err != nil {
		return "", fmt.Errorf("failed to deactivate previous dataset: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO datasets (id, category, file_name, file_size, checksum, sheet_count, row_count, active, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)`,
		meta.ID, string(category), meta.FileName, meta.FileSize, meta.Checksum,
		meta.SheetCount, meta.RowCount, data); err != nil {
		return "", fmt.Errorf("failed to insert dataset: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit dataset: %w", err)
	}

	s.logger.InfoContext(ctx, "dataset_saved",
		slog.String("dataset_id", meta.ID),
		slog.String("category", string(category)),
		slog.Int("row_count", meta.RowCount))
	return meta.ID, nil
}

// GetActive implements Store
func (s *PostgresStore) GetActive(ctx context.Context, category domain.Category) (*domain.Dataset, error) {
	return getDataset(ctx, s.pool,
		`SELECT `+metaColumns+`, data FROM datasets WHERE category = $1 AND active`, string(category))
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return getDataset(ctx, s.pool, `SELECT `+metaColumns+`, data FROM datasets WHERE id = $1`, id)
}

// ListHistory implements Store
func (s *PostgresStore) ListHistory(ctx context.Context, category domain.Category) ([]domain.DatasetMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+metaColumns+` FROM datasets WHERE category = $1 ORDER BY created_at DESC, active DESC`,
		string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset history: %w", err)
	}
	defer rows.Close()

	history := []domain.DatasetMeta{}
	for rows.Next() {
		var meta domain.DatasetMeta
		if err := rows.Scan(metaDest(&meta)...); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		history = append(history, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset history: %w", err)
	}
	return history, nil
}

// Ping implements Store
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func getDataset(ctx context.Context, db DBTX, query string, arg interface{}) (*domain.Dataset, error) {
	var (
		ds   domain.Dataset
		data []byte
	)
	dest := append(metaDest(&ds.DatasetMeta), &data)
	if err := db.QueryRow(ctx, query, arg).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	ds.Data = &domain.ResultData{}
	if err := json.Unmarshal(data, ds.Data); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", ds.ID, err)
	}
	return &ds, nil
}

// metaDest lists scan targets in metaColumns order
func metaDest(meta *domain.DatasetMeta) []interface{} {
	return []interface{}{
		&meta.ID, (*string)(&meta.Category), &meta.FileName, &meta.FileSize, &meta.Checksum,
		&meta.SheetCount, &meta.RowCount, &meta.Active, &meta.CreatedAt,
	}
}
