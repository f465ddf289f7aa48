package xid

import "github.com/google/uuid"

// New returns a random identifier. A non-empty prefix is kept in front of
// the UUID so ids stay greppable in logs (e.g. "lic-1b4e...").
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
