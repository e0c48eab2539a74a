package dbclient

import (
	"fmt"

	"dbkeep/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a profile.
func buildPostgresDSN(p *domain.Profile, password string) string {
	port := p.Port
	if port == 0 {
		port = domain.DriverPostgres.DefaultPort()
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Hostname, port, p.Username, password, p.Database, sslMode,
	)
	if p.ServerCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", p.ServerCert)
	}
	return dsn
}
