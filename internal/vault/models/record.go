// Package models defines the persisted and in-memory vault types.
package models

// Record is the persisted unit of a vault. Login and password live only inside
// Ciphertext; Service stays in clear so records can be grouped and listed
// without a key.
type Record struct {
	ID         string `db:"id"`
	UserID     int64  `db:"user_id"`
	Service    string `db:"service"`
	IV         []byte `db:"iv"`
	Tag        []byte `db:"auth_tag"`
	Ciphertext []byte `db:"ciphertext"`
}

// PlaintextRecord is a decrypted record. It is never persisted.
type PlaintextRecord struct {
	Service  string
	Login    string
	Password string
}
