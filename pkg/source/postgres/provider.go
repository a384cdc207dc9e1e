// Package postgres implements a secret provider backed by a PostgreSQL
// table, for teams that keep deployment credentials in an operations
// database rather than a dedicated secret store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // postgres driver
)

// Provider implements the source.Provider interface for PostgreSQL.
type Provider struct {
	db    *sql.DB
	query string
	ownDB bool
}

// Config holds configuration for the Postgres provider.
type Config struct {
	// DSN is a lib/pq connection string.
	DSN string
	// Table is the secrets table; it must have name and payload columns.
	// Defaults to "secrets".
	Table string
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New opens a connection pool and creates a new Postgres provider.
func New(cfg Config) (*Provider, error) {
	table := cfg.Table
	if table == "" {
		table = "secrets"
	}
	// The table name is interpolated into the query, so it must be a plain
	// identifier.
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid secrets table name %q", table)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	p := newWithDB(db, table)
	p.ownDB = true
	return p, nil
}

// NewWithDB creates a provider on top of an existing pool. The pool's
// lifecycle stays with the caller.
func NewWithDB(db *sql.DB, table string) (*Provider, error) {
	if table == "" {
		table = "secrets"
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid secrets table name %q", table)
	}
	return newWithDB(db, table), nil
}

func newWithDB(db *sql.DB, table string) *Provider {
	return &Provider{
		db:    db,
		query: fmt.Sprintf(`SELECT payload FROM %s WHERE name = $1`, table),
	}
}

// Get retrieves the payload stored under the given name.
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	var payload string
	err := p.db.QueryRowContext(ctx, p.query, path).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("secret %q not found", path)
	}
	if err != nil {
		return "", fmt.Errorf("query secret %q: %w", path, err)
	}
	return payload, nil
}

// Close closes the connection pool if this provider owns it.
func (p *Provider) Close() error {
	if !p.ownDB {
		return nil
	}
	return p.db.Close()
}
