// Package store provides the PostgreSQL-backed membership store used in
// production deployments.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore answers membership queries against the party, user_party,
// and user tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool to the given database URL and verifies
// the connection with a ping.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// PartyExists reports whether a party with the given id exists.
func (s *PostgresStore) PartyExists(ctx context.Context, partyID int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM party WHERE id = $1)`, partyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query party %d: %w", partyID, err)
	}
	return exists, nil
}

// UserInParty reports whether the user is a member of the party. A
// nonexistent party yields false.
func (s *PostgresStore) UserInParty(ctx context.Context, userID, partyID int) (bool, error) {
	exists, err := s.PartyExists(ctx, partyID)
	if err != nil || !exists {
		return false, err
	}

	var member bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_party WHERE user_id = $1 AND party_id = $2)`,
		userID, partyID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("query membership of user %d in party %d: %w", userID, partyID, err)
	}
	return member, nil
}

// DisplayName returns the user's display name.
func (s *PostgresStore) DisplayName(ctx context.Context, userID int) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT name FROM "user" WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query user %d: %w", userID, err)
	}
	return name, nil
}
