package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Table names. Each holds one JSON document per entity.
const (
	CompaniesTable    = "companies"
	InteractionsTable = "interactions"
	StudiesTable      = "studies"
)

var entityColumns = []string{"id", "name", "data"}

// Schema creates the entity tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    data JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS interactions (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    data JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS studies (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    data JSONB NOT NULL
);`

// Store is a PostgreSQL entity source. It also accepts mirrored collections from any
// other source.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.EntitySource = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the entity tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Companies(ctx context.Context) ([]schemas.Company, error) {
	return queryEntities[schemas.Company](ctx, s.pool, CompaniesTable)
}

func (s *Store) Interactions(ctx context.Context) ([]schemas.Interaction, error) {
	return queryEntities[schemas.Interaction](ctx, s.pool, InteractionsTable)
}

func (s *Store) Studies(ctx context.Context) ([]schemas.Study, error) {
	return queryEntities[schemas.Study](ctx, s.pool, StudiesTable)
}

func queryEntities[T any](ctx context.Context, pool DBPool, table string) ([]T, error) {
	query := fmt.Sprintf(`
        SELECT data
        FROM %s
        ORDER BY name ASC;
    `, pgx.Identifier{table}.Sanitize())
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: decoding %s row: %v", schemas.ErrMalformedInput, table, err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return out, nil
}

// Replace swaps the stored collections for c in a single transaction.
func (s *Store) Replace(ctx context.Context, c *schemas.Collections) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	companies, err := entityRows(c.Companies, func(v schemas.Company) (schemas.ID, string) { return v.ID, v.Name })
	if err != nil {
		return err
	}
	interactions, err := entityRows(c.Interactions, func(v schemas.Interaction) (schemas.ID, string) { return v.ID, v.Name })
	if err != nil {
		return err
	}
	studies, err := entityRows(c.Studies, func(v schemas.Study) (schemas.ID, string) { return v.ID, v.Name })
	if err != nil {
		return err
	}

	for _, t := range []struct {
		table string
		rows  [][]interface{}
	}{
		{CompaniesTable, companies},
		{InteractionsTable, interactions},
		{StudiesTable, studies},
	} {
		if err := replaceTable(ctx, tx, t.table, t.rows); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Mirrored collections.",
		zap.Int("companies", len(companies)),
		zap.Int("interactions", len(interactions)),
		zap.Int("studies", len(studies)))
	return nil
}

func replaceTable(ctx context.Context, tx pgx.Tx, table string, rows [][]interface{}) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s;", pgx.Identifier{table}.Sanitize())); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, entityColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy %s: %w", table, err)
	}
	return nil
}

// entityRows encodes entities for COPY. Entities without an id fall back to their
// name, which is unique within a collection.
func entityRows[T any](items []T, key func(T) (schemas.ID, string)) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		id, name := key(it)
		if id == "" {
			id = schemas.ID(name)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: entity has neither id nor name", schemas.ErrMalformedInput)
		}
		data, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", name, err)
		}
		rows = append(rows, []interface{}{string(id), name, data})
	}
	return rows, nil
}
