// Package store answers the relay's party membership questions. The relay is
// a leaf consumer of this interface; user and party CRUD lives elsewhere.
package store

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by DisplayName for an unknown user id.
var ErrUserNotFound = errors.New("user not found")

// MembershipStore is the read-side collaborator interface the relay consumes
// to gate connections and party joins.
type MembershipStore interface {
	// PartyExists reports whether a party with the given id exists.
	PartyExists(ctx context.Context, partyID int) (bool, error)
	// UserInParty reports whether the user belongs to the party. A
	// nonexistent party yields false, not an error.
	UserInParty(ctx context.Context, userID, partyID int) (bool, error)
	// DisplayName returns the user's display name.
	DisplayName(ctx context.Context, userID int) (string, error)
}
