package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqliteCallerColumns = `id, phone_number, name, course, city, state, user_type, calls, created_at, updated_at`

// -- Callers --

func (r *SQLiteRepository) FindByPhone(ctx context.Context, phone string) (*Caller, error) {
	const q = `
SELECT ` + sqliteCallerColumns + `
FROM callers
WHERE phone_number = ?
LIMIT 1;
`
	c, err := scanSQLiteCaller(r.db.QueryRowContext(ctx, q, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find caller by phone: %w", err)
	}
	return c, nil
}

// SQLite supports ON CONFLICT ... DO UPDATE and RETURNING from 3.35, and the
// '$[#]' append path from 3.31. Timestamps are stored as RFC 3339 text.
var sqliteUpsertCallerSQL = `
INSERT INTO callers (id, phone_number, name, course, city, state, user_type, calls, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, json_array(json(?)), ?, ?)
ON CONFLICT (phone_number) DO UPDATE SET
    ` + keepKnownSQL("callers", "excluded", Profile{}.fields()) + `,
    calls = json_insert(callers.calls, '$[#]', json(json_extract(excluded.calls, '$[0]'))),
    updated_at = excluded.updated_at
RETURNING ` + sqliteCallerColumns + `;
`

func (r *SQLiteRepository) UpsertCall(ctx context.Context, update CallerUpdate) (*Caller, error) {
	update, err := prepare(update)
	if err != nil {
		return nil, err
	}
	entry, err := encodeCall(update.Call)
	if err != nil {
		return nil, err
	}

	at := update.At.Format(time.RFC3339Nano)
	args := []any{randomUUID(), update.PhoneNumber}
	for _, f := range update.Profile.fields() {
		args = append(args, f.value)
	}
	args = append(args, entry, at, at)

	c, err := scanSQLiteCaller(r.db.QueryRowContext(ctx, sqliteUpsertCallerSQL, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert caller: %w", err)
	}
	return c, nil
}

// CountCallers returns the number of stored caller records.
func (r *SQLiteRepository) CountCallers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM callers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count callers: %w", err)
	}
	return n, nil
}

func scanSQLiteCaller(row *sql.Row) (*Caller, error) {
	var c Caller
	var calls, createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.Course, &c.City, &c.State, &c.UserType, &calls, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	history, err := decodeCalls([]byte(calls))
	if err != nil {
		return nil, err
	}
	c.Calls = history
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &c, nil
}
