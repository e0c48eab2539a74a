package dbclient

import (
	"fmt"

	"dbkeep/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN from a profile.
func buildMySQLDSN(p *domain.Profile, password string) string {
	port := p.Port
	if port == 0 {
		port = domain.DriverMySQL.DefaultPort()
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.Username, password, p.Hostname, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
