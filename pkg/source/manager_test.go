package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	scoperrors "github.com/blueberrycongee/secretscope/pkg/errors"
)

type fakeProvider struct {
	values map[string]string
	gets   []string
	closed bool
}

func (p *fakeProvider) Get(_ context.Context, path string) (string, error) {
	p.gets = append(p.gets, path)
	val, ok := p.values[path]
	if !ok {
		return "", fmt.Errorf("secret %q not found", path)
	}
	return val, nil
}

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

func TestManagerFetchRoutesByScheme(t *testing.T) {
	envLike := &fakeProvider{values: map[string]string{"APP_ENV": "KEY=value\n"}}
	vaultLike := &fakeProvider{values: map[string]string{"secret/deploy#env": "TOKEN=abc"}}

	m := NewManager()
	m.Register("env", envLike)
	m.Register("vault", vaultLike)

	records, err := m.Fetch(context.Background(), []string{"env://APP_ENV", "vault://secret/deploy#env"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "KEY=value\n", records["env://APP_ENV"].Payload)
	require.Equal(t, "env", records["env://APP_ENV"].Scheme)
	require.Equal(t, "TOKEN=abc", records["vault://secret/deploy#env"].Payload)
	require.Equal(t, "vault", records["vault://secret/deploy#env"].Scheme)
}

func TestManagerFetchFailsFast(t *testing.T) {
	p := &fakeProvider{values: map[string]string{"a": "one"}}
	m := NewManager()
	m.Register("env", p)

	records, err := m.Fetch(context.Background(), []string{"env://a", "env://missing", "env://never"})
	require.Error(t, err)
	require.Nil(t, records)
	require.True(t, scoperrors.IsResolution(err))

	var se *scoperrors.SecretError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "env://missing", se.Name)

	// The name after the failing one must never reach the backend.
	require.Equal(t, []string{"a", "missing"}, p.gets)
}

func TestManagerUnknownScheme(t *testing.T) {
	m := NewManager()
	m.Register("env", &fakeProvider{})

	_, err := m.Fetch(context.Background(), []string{"vault://secret/a"})
	require.Error(t, err)
	require.True(t, scoperrors.IsResolution(err))
	require.Contains(t, err.Error(), "vault")
}

func TestManagerBareNameRejectedWithoutFallback(t *testing.T) {
	m := NewManager()
	m.Register("env", &fakeProvider{values: map[string]string{"APP_ENV": "x"}})

	_, err := m.Fetch(context.Background(), []string{"APP_ENV"})
	require.Error(t, err)
	require.True(t, scoperrors.IsResolution(err))
}

func TestManagerFallbackScheme(t *testing.T) {
	p := &fakeProvider{values: map[string]string{"APP_ENV": "x"}}
	m := NewManager(WithFallbackScheme("env"))
	m.Register("env", p)

	records, err := m.Fetch(context.Background(), []string{"APP_ENV"})
	require.NoError(t, err)
	require.Equal(t, "x", records["APP_ENV"].Payload)
	require.Equal(t, "env", records["APP_ENV"].Scheme)
}

func TestManagerMalformedReference(t *testing.T) {
	m := NewManager()
	m.Register("env", &fakeProvider{})

	for _, name := range []string{"://path", "env://"} {
		_, err := m.Fetch(context.Background(), []string{name})
		require.Error(t, err, "name %q", name)
		require.True(t, scoperrors.IsResolution(err))
	}
}

func TestManagerClose(t *testing.T) {
	a := &fakeProvider{}
	b := &fakeProvider{}
	m := NewManager()
	m.Register("env", a)
	m.Register("vault", b)

	require.NoError(t, m.Close())
	require.True(t, a.closed)
	require.True(t, b.closed)
}
