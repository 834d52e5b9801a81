// Package relay tracks which party each connected user is currently joined
// to, for external introspection.
package relay

import "sync"

// UserPartyIndex mirrors user-to-party membership from live session state.
// It is observational bookkeeping only; the Session remains authoritative.
type UserPartyIndex struct {
	mu      sync.RWMutex
	parties map[int]int
}

// NewUserPartyIndex creates an empty index.
func NewUserPartyIndex() *UserPartyIndex {
	return &UserPartyIndex{parties: make(map[int]int)}
}

// Set records that the user is currently joined to the given party.
func (i *UserPartyIndex) Set(userID, partyID int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.parties[userID] = partyID
}

// Remove clears the user's entry. Removing an absent user is a no-op.
func (i *UserPartyIndex) Remove(userID int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.parties, userID)
}

// Get returns the party the user is joined to, if any.
func (i *UserPartyIndex) Get(userID int) (int, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	partyID, ok := i.parties[userID]
	return partyID, ok
}

// Snapshot returns a copy of the current user-to-party mapping.
func (i *UserPartyIndex) Snapshot() map[int]int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[int]int, len(i.parties))
	for userID, partyID := range i.parties {
		out[userID] = partyID
	}
	return out
}
