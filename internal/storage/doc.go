// Package storage provides the local key-value storage interface and
// in-memory implementation backing each replica. No TTL, no
// versioning: spec.md §3's StoredRecord is value plus ReplicaRole only.
package storage
