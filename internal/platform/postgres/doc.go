// Package postgres provides PostgreSQL implementations of the store
// interfaces, the per-job connection scope used by the extraction worker,
// and the embedded schema migrations applied at startup.
package postgres
