package db

import "strings"

// IsUniqueViolation reports whether err looks like a unique constraint
// violation. With a constraintName it matches that constraint's text;
// otherwise it matches the generic Postgres and SQLite phrasings, since
// dev environments run on the sqlite driver.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
