// Package storage provides the storage backend type constants.
package storage

// Type represents the type of storage backend.
type Type string

const (
	// TypeMemory represents the in-memory backend.
	TypeMemory Type = "memory"
	// TypeBadger represents the embedded-file backend.
	TypeBadger Type = "badger"
	// TypeRedis represents the Redis backend.
	TypeRedis Type = "redis"
	// TypeMongoDB represents the MongoDB backend.
	TypeMongoDB Type = "mongodb"
)

// Valid reports whether t names a known backend.
func (t Type) Valid() bool {
	switch t {
	case TypeMemory, TypeBadger, TypeRedis, TypeMongoDB:
		return true
	}
	return false
}
