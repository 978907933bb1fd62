// Package cmap provides a sharded map safe for concurrent use.
//
// Keys hash to one of a power-of-two number of shards, each guarded by its
// own RWMutex, so readers of different keys rarely contend. The sync
// engine's window cache stores one entry per (workbook, sheet, kind) here.
//
//	m := cmap.New[string, int]()
//	m.Set("book-1/Sheet1/window", 1)
//	n := m.DeleteFunc(func(k string, _ int) bool { return strings.HasPrefix(k, "book-1/") })
package cmap
