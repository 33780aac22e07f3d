package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sifan077/curto/internal/app/model"
)

// sqliteTimeLayout has a fixed-width fraction so text order equals time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteColumns = "id, target_url, count_redirects, created_at, updated_at"

// SQLiteStore is a LinkStore over database/sql for SQLite and libSQL.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore returns a store over db. The links table must exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLiteStore) Insert(ctx context.Context, id, targetURL string) (*model.Link, error) {
	now := s.now().UTC()
	stamp := now.Format(sqliteTimeLayout)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links (`+sqliteColumns+`) VALUES (?, ?, 0, ?, ?)`,
		id, targetURL, stamp, stamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("sqlite: insert link: %w", err)
	}

	return &model.Link{
		ID:        id,
		TargetURL: targetURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*model.Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM links WHERE id = ?`, id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("sqlite: find link: %w", err)
	}
	return link, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Link, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM links ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list links: %w", err)
	}
	defer rows.Close()

	links := make([]model.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list links: %w", err)
	}
	return links, nil
}

func (s *SQLiteStore) IncrementRedirectCount(ctx context.Context, id string) (*model.Link, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE links SET count_redirects = count_redirects + 1, updated_at = ?
		 WHERE id = ? RETURNING `+sqliteColumns,
		s.now().UTC().Format(sqliteTimeLayout), id,
	)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("sqlite: increment link: %w", err)
	}
	return link, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*model.Link, error) {
	var (
		link             model.Link
		created, updated sqliteTime
	)
	if err := row.Scan(&link.ID, &link.TargetURL, &link.CountRedirects, &created, &updated); err != nil {
		return nil, err
	}
	link.CreatedAt = created.Time
	link.UpdatedAt = updated.Time
	return &link, nil
}

// sqliteTime accepts the representations SQLite drivers hand back for a
// TEXT timestamp column.
type sqliteTime struct {
	time.Time
}

func (t *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqliteTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	// libSQL reports constraint failures as plain text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
