// Package store defines the persistence contracts for sources and documents.
// Implementations live under internal/platform; callers depend only on the
// interfaces declared here.
package store
