package domain

import "strings"

// Driver identifies the database engine a profile targets.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DefaultPort returns the conventional port for the driver, 0 for sqlite.
func (d Driver) DefaultPort() int {
	switch d {
	case DriverMySQL:
		return 3306
	case DriverPostgres:
		return 5432
	default:
		return 0
	}
}

// Valid reports whether d names a supported engine.
func (d Driver) Valid() bool {
	switch d {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return true
	}
	return false
}

// Profile holds the saved connection settings for one
// (environment, hostname, database) triple. On disk the password field is
// always sealed under the secret key; it holds plaintext only in memory,
// between a prompt/reveal and the driver call.
type Profile struct {
	Version        int    `json:"version"`
	Environment    string `json:"environment"`
	Hostname       string `json:"hostname"` // hostname, or file path for sqlite
	Database       string `json:"database"`
	Driver         Driver `json:"driver"`
	Port           int    `json:"port,omitempty"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	SSLMode        string `json:"ssl_mode,omitempty"`
	ServerCert     string `json:"server_cert,omitempty"`
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
}

// Identity returns the normalized (environment, hostname, database) triple
// that keys this profile.
func (p *Profile) Identity() (env, host, db string) {
	return strings.ToLower(p.Environment), strings.ToLower(p.Hostname), strings.ToLower(p.Database)
}
