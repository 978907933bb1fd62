// Package memory provides in-memory storage for SheetSync.
//
// Features:
//
//   - Cache: process-scoped TTL cache with lazy, read-time expiry, backed
//     by a sharded concurrent map
//   - Store: a service.GridStore holding sheets in memory, used by the
//     memory backend and by tests; LoadSeed fills it from a YAML file
//
// Thread Safety:
//
// Cache operations are safe for concurrent use through sharded locking.
// Store serializes every call behind a single mutex.
package memory
