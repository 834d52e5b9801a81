// Package store provides an in-memory membership store for tests and
// database-less development runs.
package store

import (
	"context"
	"sync"
)

// MemoryStore is a thread-safe in-memory MembershipStore.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[int]string
	members map[int]map[int]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int]string),
		members: make(map[int]map[int]struct{}),
	}
}

// AddUser registers a user with a display name.
func (s *MemoryStore) AddUser(userID int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = name
}

// AddParty registers a party with no members yet.
func (s *MemoryStore) AddParty(partyID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[partyID] == nil {
		s.members[partyID] = make(map[int]struct{})
	}
}

// AddMember adds a user to a party, creating the party if needed.
func (s *MemoryStore) AddMember(partyID, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[partyID] == nil {
		s.members[partyID] = make(map[int]struct{})
	}
	s.members[partyID][userID] = struct{}{}
}

// RemoveMember drops a user from a party.
func (s *MemoryStore) RemoveMember(partyID, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.members[partyID]; ok {
		delete(members, userID)
	}
}

// PartyExists reports whether the party has been registered.
func (s *MemoryStore) PartyExists(_ context.Context, partyID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[partyID]
	return ok, nil
}

// UserInParty reports whether the user is a member of the party.
func (s *MemoryStore) UserInParty(_ context.Context, userID, partyID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.members[partyID]
	if !ok {
		return false, nil
	}
	_, member := members[userID]
	return member, nil
}

// DisplayName returns the user's display name.
func (s *MemoryStore) DisplayName(_ context.Context, userID int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.users[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return name, nil
}
