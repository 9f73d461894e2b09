package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Handlers define separate response types with JSON
// tags; these structs map columns one to one.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the per-user wallet in the `profiles` table.  Tips
// earned from delivered orders are credited to BankCents with an
// atomic increment at the store layer.
type Profile struct {
	UserID    uint64
	BankCents int64
	UpdatedAt time.Time
}
