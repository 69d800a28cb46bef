package models

import "time"

// RefreshToken is an opaque long-lived token, rotated on every use.
type RefreshToken struct {
	Token   string
	UserID  string
	Expires time.Time
}
