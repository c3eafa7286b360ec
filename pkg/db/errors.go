package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// violation. With a constraintName it matches that constraint only,
// which lets registration distinguish a duplicate email from any other
// conflict.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
