// Package repository provides generic repositories that delegate persistence
// to a storage adapter and flush through the ambient unit of work.
//
// BasicRepository covers operations that do not need the entity key;
// Repository adds key-addressed lookups and deletes. Writes with auto-save
// enabled call SaveChanges on the current unit of work, which is the only way
// a repository makes buffered changes durable.
package repository
