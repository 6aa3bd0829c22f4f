// package repositories provides the persistence layer over SQLite.
//
// Each repository wraps a [database/sql] connection for one table family.
// Imports are idempotent, so writes are upserts keyed on the natural
// identity of each row rather than plain inserts.
package repositories
