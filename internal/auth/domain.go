package auth

import "time"

// Credential stores the login secret for a roster user. Profile fields live
// on the ledger user; this record only carries what is needed to verify a
// password.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
