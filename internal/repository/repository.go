// Package repository provides database access for the cobagage marketplace.
//
// All queries hit the indexes created in migrations/001_create_schema.up.sql.
// Errors from the store propagate unchanged; the matching core performs no
// retries.
package repository

import "errors"

// ErrNotFound is returned by point lookups when the record does not exist.
// Callers map it to their own domain-level not-found errors.
var ErrNotFound = errors.New("record not found")
