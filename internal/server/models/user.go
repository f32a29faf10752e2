// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is one registered account. CredentialHash is produced by the client
// and only ever compared for equality.
type User struct {
	ID               string
	Email            string
	CredentialHash   string
	IsPremium        bool
	BiometricEnabled bool
	CreatedAt        time.Time
}
