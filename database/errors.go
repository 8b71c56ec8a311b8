package database

import "strings"

// IsUniqueViolation matches "UNIQUE constraint failed" (sqlite) and
// "duplicate key value violates unique constraint" / SQLSTATE 23505
// (postgres).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "23505")
}
