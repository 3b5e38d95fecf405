// Package store opens the relational database holding the states-history
// table and loads it from the published CSV export.
//
// Two drivers are supported: sqlite (modernc.org/sqlite, pure Go, the
// default) and mysql (github.com/go-sql-driver/mysql).
package store
