// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish failure
// classes without inspecting driver errors: a duplicate account maps to
// HTTP 409, a missing record to 404, and everything else stays a generic
// store error so driver detail never reaches a client.
package repository

import "errors"

// ErrDuplicateAccount is returned when an insert violates the unique
// constraint on username or email. Handlers translate this into 409.
var ErrDuplicateAccount = errors.New("duplicate account")

// ErrNotFound is returned when a lookup matches no row. Handlers translate
// this into 404.
var ErrNotFound = errors.New("not found")
