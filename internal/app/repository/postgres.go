package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sifan077/curto/internal/app/model"
)

const pgUniqueViolation = "23505"

const pgColumns = "id, target_url, count_redirects, created_at, updated_at"

// Querier is the subset of *pgxpool.Pool used by PostgresStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresStore struct {
	db Querier
}

// NewPostgresStore returns a pgx-backed LinkStore.
func NewPostgresStore(db Querier) LinkStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) Insert(ctx context.Context, id, targetURL string) (*model.Link, error) {
	link, err := s.one(ctx,
		`INSERT INTO links (`+pgColumns+`) VALUES ($1, $2, 0, now(), now()) RETURNING `+pgColumns,
		id, targetURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("postgres: insert link: %w", err)
	}
	return link, nil
}

func (s *postgresStore) FindByID(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.one(ctx, `SELECT `+pgColumns+` FROM links WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("postgres: find link: %w", err)
	}
	return link, nil
}

func (s *postgresStore) ListAll(ctx context.Context) ([]model.Link, error) {
	rows, err := s.db.Query(ctx, `SELECT `+pgColumns+` FROM links ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list links: %w", err)
	}
	links, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Link])
	if err != nil {
		return nil, fmt.Errorf("postgres: list links: %w", err)
	}
	if links == nil {
		links = []model.Link{}
	}
	return normalize(links), nil
}

func (s *postgresStore) IncrementRedirectCount(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.one(ctx,
		`UPDATE links SET count_redirects = count_redirects + 1, updated_at = now()
		 WHERE id = $1 RETURNING `+pgColumns,
		id,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("postgres: increment link: %w", err)
	}
	return link, nil
}

func (s *postgresStore) one(ctx context.Context, sql string, args ...any) (*model.Link, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	link, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Link])
	if err != nil {
		return nil, err
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	return link, nil
}

func normalize(links []model.Link) []model.Link {
	for i := range links {
		links[i].CreatedAt = links[i].CreatedAt.UTC()
		links[i].UpdatedAt = links[i].UpdatedAt.UTC()
	}
	return links
}
