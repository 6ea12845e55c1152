package models

import "strings"

// Namespace puts all table names under a common namespace. This is
// useful if you want to share one database between several services.
var Namespace string

func tableName(defaultName string) string {
	if Namespace != "" {
		return Namespace + "_" + defaultName
	}
	return defaultName
}

// isUniqueViolation reports whether an insert failed on a primary-key
// or unique-index collision. gorm predates typed driver errors here,
// so the driver message is all we have to go on.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, fragment := range []string{
		"UNIQUE constraint failed", // sqlite3
		"Duplicate entry",          // mysql
		"duplicate key value",      // postgres
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
