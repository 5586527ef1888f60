package models

// User owns exactly one salt. The salt is generated on first vault use and
// never changes afterwards; changing it would orphan every stored record.
type User struct {
	ID   int64  `db:"id"`
	Salt []byte `db:"salt"`
}
