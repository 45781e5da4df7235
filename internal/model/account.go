package model

// Account is a local admin-app user, used only as the requester
// fallback when a button event carries no explicit requester.
type Account struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Username string `json:"username"`
}
