package topology

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

// querier abstracts *sql.DB and *sql.Tx so the same store code serves both
// the pooled handle and a transaction-bound view.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists the topology in PostgreSQL.
type PostgresStore struct {
	db *sql.DB // nil on a transaction-bound view
	q  querier
}

// NewPostgres constructs a PostgreSQL-backed topology store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// EnsureTopologySchema creates the topology tables when absent.
func EnsureTopologySchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS congestion_points (
			entity_address TEXT PRIMARY KEY,
			dso_domain     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			entity_address    TEXT PRIMARY KEY,
			congestion_point  TEXT REFERENCES congestion_points(entity_address),
			aggregator_domain TEXT,
			brp_domain        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS connections_congestion_point_idx
			ON connections (congestion_point)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure topology schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindCongestionPoint(ctx context.Context, entityAddress string) (*domain.CongestionPoint, error) {
	cp := domain.CongestionPoint{EntityAddress: entityAddress}
	err := s.q.QueryRowContext(ctx,
		`SELECT dso_domain FROM congestion_points WHERE entity_address = $1`,
		entityAddress,
	).Scan(&cp.DSODomain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "congestion point %q not found", entityAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("find congestion point: %w", err)
	}
	return &cp, nil
}

func (s *PostgresStore) SaveCongestionPoint(ctx context.Context, cp domain.CongestionPoint) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO congestion_points (entity_address, dso_domain)
		VALUES ($1, $2)
		ON CONFLICT (entity_address) DO UPDATE SET dso_domain = EXCLUDED.dso_domain
	`, cp.EntityAddress, cp.DSODomain)
	if err != nil {
		return fmt.Errorf("save congestion point: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCongestionPoint(ctx context.Context, entityAddress string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM congestion_points WHERE entity_address = $1`, entityAddress)
	if err != nil {
		return fmt.Errorf("delete congestion point: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete congestion point: %w", err)
	}
	if affected == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "congestion point %q not found", entityAddress)
	}
	return nil
}

func (s *PostgresStore) FindConnection(ctx context.Context, entityAddress string) (*domain.Connection, error) {
	conn, err := scanConnection(s.q.QueryRowContext(ctx, `
		SELECT entity_address, congestion_point, aggregator_domain, brp_domain
		FROM connections WHERE entity_address = $1
	`, entityAddress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "connection %q not found", entityAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}
	return conn, nil
}

func (s *PostgresStore) SaveConnection(ctx context.Context, conn domain.Connection) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO connections (entity_address, congestion_point, aggregator_domain, brp_domain)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_address) DO UPDATE SET
			congestion_point  = EXCLUDED.congestion_point,
			aggregator_domain = EXCLUDED.aggregator_domain,
			brp_domain        = EXCLUDED.brp_domain
	`, conn.EntityAddress, nullString(conn.CongestionPoint), nullString(conn.AggregatorDomain), nullString(conn.BRPDomain))
	if err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteConnection(ctx context.Context, entityAddress string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM connections WHERE entity_address = $1`, entityAddress)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	if affected == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "connection %q not found", entityAddress)
	}
	return nil
}

func (s *PostgresStore) ConnectionsByCongestionPoint(ctx context.Context, entityAddress string) ([]*domain.Connection, error) {
	return s.queryConnections(ctx, `
		SELECT entity_address, congestion_point, aggregator_domain, brp_domain
		FROM connections WHERE congestion_point = $1
		ORDER BY entity_address
	`, entityAddress)
}

func (s *PostgresStore) ConnectionsByAggregator(ctx context.Context, aggregatorDomain string) ([]*domain.Connection, error) {
	return s.queryConnections(ctx, `
		SELECT entity_address, congestion_point, aggregator_domain, brp_domain
		FROM connections WHERE lower(aggregator_domain) = lower($1)
		ORDER BY entity_address
	`, aggregatorDomain)
}

func (s *PostgresStore) ConnectionsByBRP(ctx context.Context, brpDomain string) ([]*domain.Connection, error) {
	return s.queryConnections(ctx, `
		SELECT entity_address, congestion_point, aggregator_domain, brp_domain
		FROM connections WHERE lower(brp_domain) = lower($1)
		ORDER BY entity_address
	`, brpDomain)
}

// WithTx runs fn in a database transaction. Calls on an already
// transaction-bound view join the surrounding transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin topology tx: %w", err)
	}
	if err := fn(&PostgresStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback topology tx: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit topology tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryConnections(ctx context.Context, query string, arg any) ([]*domain.Connection, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var out []*domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	var conn domain.Connection
	var cp, agr, brp sql.NullString
	if err := row.Scan(&conn.EntityAddress, &cp, &agr, &brp); err != nil {
		return nil, err
	}
	conn.CongestionPoint = cp.String
	conn.AggregatorDomain = agr.String
	conn.BRPDomain = brp.String
	return &conn, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
