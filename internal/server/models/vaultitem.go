package models

import "time"

// VaultItem is one encrypted secret owned by exactly one user. ItemType and
// EncryptedPayload are opaque to the server.
type VaultItem struct {
	ID               string
	OwnerID          string
	ItemType         string
	EncryptedPayload string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
