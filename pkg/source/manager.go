package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blueberrycongee/secretscope/pkg/errors"
)

// Manager routes secret names to providers based on URI schemes and
// implements the Source interface on top of them.
type Manager struct {
	providers map[string]Provider
	limiter   *rate.Limiter
	fallback  string
	mu        sync.RWMutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRateLimit throttles backend fetches to r requests per second with the
// given burst. Zero or negative r disables throttling.
func WithRateLimit(r float64, burst int) ManagerOption {
	return func(m *Manager) {
		if r > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithFallbackScheme routes names without a scheme to the given registered
// scheme instead of rejecting them.
func WithFallbackScheme(scheme string) ManagerOption {
	return func(m *Manager) {
		m.fallback = scheme
	}
}

// NewManager creates a new secret source manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register registers a provider for a specific scheme (e.g., "vault", "env").
func (m *Manager) Register(scheme string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[scheme] = provider
}

// Schemes returns the registered scheme names.
func (m *Manager) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schemes := make([]string, 0, len(m.providers))
	for s := range m.providers {
		schemes = append(schemes, s)
	}
	return schemes
}

// Fetch resolves every name in names. Resolution is sequential in input
// order and fails fast on the first unresolvable name; in that case no
// partial mapping is returned.
func (m *Manager) Fetch(ctx context.Context, names []string) (map[string]Record, error) {
	records := make(map[string]Record, len(names))
	for _, name := range names {
		rec, err := m.fetchOne(ctx, name)
		if err != nil {
			return nil, err
		}
		records[name] = rec
	}
	return records, nil
}

func (m *Manager) fetchOne(ctx context.Context, name string) (Record, error) {
	scheme, path, err := m.route(name)
	if err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	provider, ok := m.providers[scheme]
	m.mu.RUnlock()
	if !ok {
		return Record{}, errors.NewResolutionError(name, scheme,
			fmt.Errorf("no secret provider registered for scheme %q", scheme))
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return Record{}, errors.NewResolutionError(name, scheme, err)
		}
	}

	payload, err := provider.Get(ctx, path)
	if err != nil {
		return Record{}, errors.NewResolutionError(name, scheme, err)
	}

	return Record{Name: name, Scheme: scheme, Payload: payload}, nil
}

// route splits "scheme://path" and applies the fallback scheme for bare
// names. Unknown shapes are rejected deliberately rather than passed through
// as static values.
func (m *Manager) route(name string) (scheme, path string, err error) {
	parts := strings.SplitN(name, "://", 2)
	if len(parts) == 2 {
		if parts[0] == "" || parts[1] == "" {
			return "", "", errors.NewResolutionError(name, parts[0],
				fmt.Errorf("malformed secret reference %q", name))
		}
		return parts[0], parts[1], nil
	}
	if m.fallback == "" {
		return "", "", errors.NewResolutionError(name, "",
			fmt.Errorf("secret reference %q has no scheme and no fallback scheme is configured", name))
	}
	return m.fallback, name, nil
}

// Close closes all registered providers.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []string
	for scheme, p := range m.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", scheme, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close providers: %s", strings.Join(errs, "; "))
	}
	return nil
}
