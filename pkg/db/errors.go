package db

import "strings"

// IsUniqueViolation reports whether err looks like a unique violation.
// With a constraintName it checks for that specific constraint,
// otherwise it matches the generic duplicate-key phrasing of Postgres
// and SQLite.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName)
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
