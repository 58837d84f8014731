// Package sqlite persists accounts, locations, reviews and scheduler state in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, accessed through sqlx. It implements several store interfaces through a
// single database connection:
//
//   - AccountStore: accounts and their OAuth credentials
//   - LocationStore: locations by (account, external ID)
//   - ReviewStore: reviews by (location, external ID)
//   - SchedulerStore: scheduled tasks and their run history
//
// # Tokens at rest
//
// Access and refresh tokens are sealed with a driven.TokenCipher before they are
// written and opened when read. Plaintext tokens never reach the database file.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.listingsync/data/listingsync.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Upserts use ON CONFLICT on the
// natural key so concurrent writers converge on one row.
package sqlite
