package model

// Credential is a registered user and the hash of their password.
type Credential struct {
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"password_hash" db:"password_hash"`
}
