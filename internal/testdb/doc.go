//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Each test runs in its own transaction, which is rolled back when the test
// completes, so tests can run in parallel without cleaning up after
// themselves:
//
//	func TestSourceRoundTrip(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        sources := postgres.NewPostgresSourceStore(tx, nil)
//	        ...
//	    })
//	}
//
// The database URL is read from DATABASE_URL, SCRY_TEST_DB_URL or
// SCRY_DATABASE_URL, in that order. Tests are skipped when none is set.
package testdb
