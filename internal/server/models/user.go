// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a stored credential. PasswordHash is nil for accounts created
// through an external identity provider.
type User struct {
	ID           string
	LoginID      string
	PasswordHash []byte
	ExternalID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
