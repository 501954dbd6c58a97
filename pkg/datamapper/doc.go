// Package datamapper provides DataMapper implementations for board lists.
//
// MemoryMapper keeps queries in memory and is meant for tests and examples:
// it counts calls, can inject failures and can hold fetches or patches until
// released. FileMapper keeps queries in a JSON document on disk and replaces
// the file atomically on every write.
//
// Both apply the fetch projection to the returned query (its Columns are the
// projection's) and return ErrNotFound for unknown ids.
package datamapper
