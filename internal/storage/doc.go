// Package storage opens the database and Redis handles the adapter runs
// against and implements the trivial probe query used to notice that the
// enclosing query has been cancelled.
package storage
