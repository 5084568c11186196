package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPool is the subset of *pgxpool.Pool the repository uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresRepository provides typed access to the callers table in Postgres.
type PostgresRepository struct {
	pool   pgxPool
	logger *slog.Logger
	schema string
}

// New opens a new connection pool to the database with the desired search_path.
func New(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := newPostgres(pool, schema, logger)
	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func newPostgres(pool pgxPool, schema string, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool:   pool,
		logger: logger.With("component", "repo_postgres"),
		schema: schema,
	}
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (r *PostgresRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.pool, filesystem)
}

const callerColumns = `id, phone_number, name, course, city, state, user_type, calls::text, created_at, updated_at`

// FindByPhone returns the caller stored under phone.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*Caller, error) {
	const q = `
SELECT ` + callerColumns + `
FROM callers
WHERE phone_number = $1
LIMIT 1;
`
	c, err := scanCaller(r.pool.QueryRow(ctx, q, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find caller by phone: %w", err)
	}
	return c, nil
}

var pgUpsertCallerSQL = `
INSERT INTO callers (id, phone_number, name, course, city, state, user_type, calls, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, jsonb_build_array($8::jsonb), $9, $9)
ON CONFLICT (phone_number) DO UPDATE SET
    ` + keepKnownSQL("callers", "EXCLUDED", Profile{}.fields()) + `,
    calls = callers.calls || EXCLUDED.calls,
    updated_at = EXCLUDED.updated_at
RETURNING ` + callerColumns + `;
`

// UpsertCall stores the call in a single INSERT ... ON CONFLICT statement so
// concurrent events for one number neither duplicate the record nor drop a
// history entry.
func (r *PostgresRepository) UpsertCall(ctx context.Context, update CallerUpdate) (*Caller, error) {
	update, err := prepare(update)
	if err != nil {
		return nil, err
	}
	entry, err := encodeCall(update.Call)
	if err != nil {
		return nil, err
	}

	args := []any{randomUUID(), update.PhoneNumber}
	for _, f := range update.Profile.fields() {
		args = append(args, f.value)
	}
	args = append(args, entry, update.At)

	c, err := scanCaller(r.pool.QueryRow(ctx, pgUpsertCallerSQL, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert caller: %w", err)
	}
	return c, nil
}

func scanCaller(row pgx.Row) (*Caller, error) {
	var c Caller
	var calls string
	if err := row.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.Course, &c.City, &c.State, &c.UserType, &calls, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	history, err := decodeCalls([]byte(calls))
	if err != nil {
		return nil, err
	}
	c.Calls = history
	return &c, nil
}
