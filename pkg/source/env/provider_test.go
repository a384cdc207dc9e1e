package env

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Setenv("SECRETSCOPE_TEST_VAR", "KEY=value\n")

	p := New()
	val, err := p.Get(context.Background(), "SECRETSCOPE_TEST_VAR")
	require.NoError(t, err)
	require.Equal(t, "KEY=value\n", val)
}

func TestGetUnsetVariable(t *testing.T) {
	p := New()
	_, err := p.Get(context.Background(), "SECRETSCOPE_DEFINITELY_UNSET")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SECRETSCOPE_DEFINITELY_UNSET")
}

func TestGetEmptyValueIsReturned(t *testing.T) {
	// Empty payloads are rejected by the session layer, not the provider.
	t.Setenv("SECRETSCOPE_EMPTY_VAR", "")

	p := New()
	val, err := p.Get(context.Background(), "SECRETSCOPE_EMPTY_VAR")
	require.NoError(t, err)
	require.Equal(t, "", val)
}
