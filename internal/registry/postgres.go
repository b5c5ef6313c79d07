package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

// PostgresStore persists one role's participants in PostgreSQL. All roles
// share a single table; the role column keeps the per-role registries
// independent while deployments run one database.
type PostgresStore struct {
	db   *sql.DB
	role domain.Role
}

// NewPostgres constructs a PostgreSQL-backed registry for one role.
func NewPostgres(db *sql.DB, role domain.Role) *PostgresStore {
	return &PostgresStore{db: db, role: role}
}

// NewPostgresRegistries builds the full role table on one database handle.
func NewPostgresRegistries(db *sql.DB) Registries {
	regs := make(Registries, len(domain.Roles()))
	for _, role := range domain.Roles() {
		regs[role] = NewPostgres(db, role)
	}
	return regs
}

// EnsureParticipantSchema creates the participants table when absent.
func EnsureParticipantSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS participants (
			role        TEXT NOT NULL,
			party_domain TEXT NOT NULL,
			PRIMARY KEY (role, party_domain)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure participants schema: %w", err)
	}
	// Domain spelling is preserved but registrations are unique ignoring case,
	// matching the case-insensitive comparisons used during reconciliation.
	_, err = db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS participants_role_domain_ci
			ON participants (role, lower(party_domain))
	`)
	if err != nil {
		return fmt.Errorf("ensure participants schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByDomain(ctx context.Context, partyDomain string) (*domain.Participant, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT party_domain FROM participants WHERE role = $1 AND lower(party_domain) = lower($2)`,
		string(s.role), partyDomain,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "%s participant %q not found", s.role, partyDomain)
	}
	if err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return &domain.Participant{Role: s.role, Domain: stored}, nil
}

func (s *PostgresStore) FindOrCreate(ctx context.Context, partyDomain string) (*domain.Participant, error) {
	p, err := s.FindByDomain(ctx, partyDomain)
	if err == nil {
		return p, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	p, err = s.Create(ctx, partyDomain)
	if err != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
		// Lost a race with a concurrent registration; the row exists now.
		return s.FindByDomain(ctx, partyDomain)
	}
	return p, err
}

func (s *PostgresStore) Create(ctx context.Context, partyDomain string) (*domain.Participant, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (role, party_domain) VALUES ($1, $2)`,
		string(s.role), partyDomain,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, dErrors.Newf(dErrors.CodeConflict, "%s participant %q already registered", s.role, partyDomain)
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return &domain.Participant{Role: s.role, Domain: partyDomain}, nil
}

func (s *PostgresStore) Delete(ctx context.Context, partyDomain string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM participants WHERE role = $1 AND lower(party_domain) = lower($2)`,
		string(s.role), partyDomain,
	)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if affected == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "%s participant %q not found", s.role, partyDomain)
	}
	return nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT party_domain FROM participants WHERE role = $1 ORDER BY party_domain`,
		string(s.role),
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var all []*domain.Participant
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		all = append(all, &domain.Participant{Role: s.role, Domain: stored})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return all, nil
}
