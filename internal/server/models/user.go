// Package models defines server-side persistence models.
package models

import "time"

// User is one registered account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
