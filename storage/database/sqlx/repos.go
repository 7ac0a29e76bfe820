// Package sqlxrepos implements the core repositories on top of PostgreSQL
// via jmoiron/sqlx.
package sqlxrepos

import "strconv"

func itoa(n int) string { return strconv.Itoa(n) }
