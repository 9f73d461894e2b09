// Package repository implements raw-SQL data access over MySQL.  This
// file defines sentinel error values reused across repositories so
// that handlers and the game service can distinguish failure modes
// with errors.Is without inspecting driver errors.
package repository

import "errors"

// ErrOrderNotFound is returned when an order id does not exist.
// Handlers translate this into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrSessionNotFound is returned when a user has no active session or
// a session id does not exist.  Handlers translate this into 404.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoAddressAvailable is returned when the addresses reference table
// is empty, which makes order generation impossible.
var ErrNoAddressAvailable = errors.New("no address available")

// ErrEmailExists is returned when registering with a taken email.
var ErrEmailExists = errors.New("email already exists")
