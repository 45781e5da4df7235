package model

import "time"

// CachedToken is the durable record of the current platform credential.
// Refresh replaces the row wholesale (delete-then-insert); fields are
// never mutated individually, so a reader can never observe a
// half-written token.
type CachedToken struct {
	ID          int64     `json:"id"`
	Account     string    `json:"account"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Live reports whether the token is still usable at the given instant.
func (t *CachedToken) Live(now time.Time) bool {
	return t != nil && t.Token != "" && t.ExpiresAt.After(now)
}
