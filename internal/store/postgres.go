package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pool is the subset of *pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

type PostgresStore struct {
	reader
	pool pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "connect to database")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "ping database")
	}
	return newPostgresStore(p), nil
}

func newPostgresStore(p pool) *PostgresStore {
	s := &PostgresStore{pool: p}
	s.reader = reader{ph: dollar, query: s.query}
	return s
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) (rows, error) {
	return s.pool.Query(ctx, sql, args...)
}

func (s *PostgresStore) FetchObservations(ctx context.Context, q ObservationQuery) ([]Observation, error) {
	return s.fetchObservations(ctx, q)
}

func (s *PostgresStore) FetchHierarchy(ctx context.Context, indicatorNames []string) (*Hierarchy, error) {
	return s.fetchHierarchy(ctx, indicatorNames)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
