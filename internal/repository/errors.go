// Package repository contains data access logic separated from HTTP
// handlers. This file defines sentinel errors reused across repositories so
// higher layers can map failures to HTTP responses without inspecting
// driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert would violate the unique email
// constraint on the users table. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenNotFound is returned when no refresh token record matches the
// given hash, including when a rotation loses the race against a concurrent
// rotation of the same token.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrNotFound is the generic absent-row error for entity lookups. Handlers
// translate it into HTTP 404.
var ErrNotFound = errors.New("not found")
