package dbclient

import (
	"dbkeep/internal/domain"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN builds the DSN for a local SQLite file. The profile's
// hostname field carries the file path; no credentials are involved.
func buildSQLiteDSN(p *domain.Profile) string {
	return p.Hostname + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
