// Package service implements the SheetSync engine.
//
// The Engine is the explicit context object shared by all operations: it
// owns the workbook registry, the store Source, the TTL cache and the
// metrics Observer. Every operation runs to completion independently and
// touches shared state only through the cache and the Source.
//
// This package contains:
//
//   - GetChanges: incremental sync against a cached window of recent rows
//   - ApplyUpdates: optimistic per-cell writes with the +1 version rule
//   - AppendRows, InsertColumn: row and column growth
//
// Storage dependencies are expressed as the GridStore, Source and Cache
// interfaces so tests can inject in-memory implementations.
package service
