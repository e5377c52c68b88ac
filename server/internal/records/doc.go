// Package records turns the process-data CSV file into typed records and
// answers the two read queries the API exposes.
//
// Load(ctx, fs, path) reads the whole file into a Set. The header row names
// the columns; every cell except the "timestamp" column is stored as a Number
// when it is fully numeric and as Text otherwise.
//
// Queries:
//
//	All(set)       — every record, file order
//	Latest(set, n) — the n most recent records by timestamp, oldest first
//
// A Set is never mutated after Load returns, so it may be shared between
// goroutines.
package records
