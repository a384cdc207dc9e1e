// Package source provides secret source interfaces and the scheme-routing
// manager that dispatches secret names to backend providers.
package source

import "context"

// Record is a resolved secret. Payload is the verbatim secret material; the
// session layer validates it is non-empty before materializing it.
type Record struct {
	// Name is the name the secret was requested under, scheme included.
	Name string
	// Scheme identifies the backend that resolved the secret.
	Scheme string
	// Payload is the secret content, untransformed.
	Payload string
}

// Source resolves batches of secret names. Fetch fails with a resolution
// error if any requested name cannot be resolved; no partial result is
// returned in that case.
type Source interface {
	// Fetch resolves every name in names and returns a mapping keyed by the
	// requested name.
	Fetch(ctx context.Context, names []string) (map[string]Record, error)

	// Close releases any resources held by the source.
	Close() error
}

// Provider defines the interface for a single secret backend. Providers are
// registered on a Manager under a URI scheme and receive names with the
// scheme prefix stripped.
type Provider interface {
	// Get retrieves the secret value for the given path.
	// path examples: "APP_ENV_NOTES" (env), "secret/data/deploy#env" (vault)
	Get(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}
