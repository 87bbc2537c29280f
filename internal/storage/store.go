// Package storage provides the local key-value store each replica
// serves CRUD requests against. Per spec.md §1 Non-goals there is no
// TTL and no versioning: a StoredRecord is exactly a value plus the
// ReplicaRole under which it is held (spec.md §3).
package storage

import (
	"kvstore/internal/wire"
)

// StoredRecord is a single value held locally, tagged with the role
// this peer currently plays for it. The role is updated in place when
// stabilization reassigns responsibility (spec.md §4.5).
type StoredRecord struct {
	Value string
	Role  wire.ReplicaRole
}

// Store is the local backing map. It is owned exclusively by one peer
// and is never shared: spec.md §5 requires no locking given the
// single-threaded per-peer model, so this type is not safe for
// concurrent use from multiple goroutines without external
// synchronization (the peer's actor model in internal/peer provides
// that by construction, calling Store only from Tick()).
type Store struct {
	data map[string]StoredRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]StoredRecord)}
}

// Create inserts key=value under role. Succeeds only if the key is
// absent, per spec.md §4.4.
func (s *Store) Create(key, value string, role wire.ReplicaRole) bool {
	if _, exists := s.data[key]; exists {
		return false
	}
	s.data[key] = StoredRecord{Value: value, Role: role}
	return true
}

// Read returns the value for key and whether it was present.
func (s *Store) Read(key string) (string, bool) {
	rec, exists := s.data[key]
	if !exists {
		return "", false
	}
	return rec.Value, true
}

// Update overwrites the value for an existing key. Succeeds only if
// the key is present.
func (s *Store) Update(key, value string) bool {
	rec, exists := s.data[key]
	if !exists {
		return false
	}
	rec.Value = value
	s.data[key] = rec
	return true
}

// Delete removes key. Succeeds only if the key was present.
func (s *Store) Delete(key string) bool {
	if _, exists := s.data[key]; !exists {
		return false
	}
	delete(s.data, key)
	return true
}

// SetRole updates the ReplicaRole of a key already held locally,
// without touching its value. Used by the stabilizer when this peer's
// position in a key's replica triple changes but it remains a replica.
// Reports false if the key is not held locally.
func (s *Store) SetRole(key string, role wire.ReplicaRole) bool {
	rec, exists := s.data[key]
	if !exists {
		return false
	}
	rec.Role = role
	s.data[key] = rec
	return true
}

// KeysWithRole returns every key currently held under the given role,
// used by the stabilizer to find keys this peer is Primary for.
func (s *Store) KeysWithRole(role wire.ReplicaRole) []string {
	keys := make([]string, 0)
	for k, rec := range s.data {
		if rec.Role == role {
			keys = append(keys, k)
		}
	}
	return keys
}

// Keys returns every key currently held locally, regardless of role.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the full StoredRecord for key and whether it was present.
func (s *Store) Get(key string) (StoredRecord, bool) {
	rec, exists := s.data[key]
	return rec, exists
}

// Len reports the number of keys currently held.
func (s *Store) Len() int {
	return len(s.data)
}
