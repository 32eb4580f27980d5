// Package database provides the PostgreSQL connection pool that cycle
// records are written to.
package database
