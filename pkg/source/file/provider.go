// Package file implements a secret provider backed by a directory of secret
// files, such as a mounted credential volume.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// Provider implements the source.Provider interface for an on-disk
// credential directory. Each secret is one file under Dir; a "name#key"
// path treats the file as a JSON object and returns the named key.
type Provider struct {
	dir string
}

// New creates a new file provider rooted at dir.
func New(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat secret directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secret path %q is not a directory", dir)
	}
	return &Provider{dir: dir}, nil
}

// Get reads the secret file at path, relative to the provider's directory.
// Path format: "relative/name" or "relative/name#jsonKey".
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	name := path
	key := ""
	if idx := strings.LastIndex(path, "#"); idx != -1 {
		name = path[:idx]
		key = path[idx+1:]
	}

	full := filepath.Join(p.dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(p.dir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("secret path %q escapes the credential directory", name)
	}

	data, err := os.ReadFile(full) // #nosec G304 -- path is confined to the credential directory above.
	if err != nil {
		return "", fmt.Errorf("read secret file %q: %w", name, err)
	}

	if key == "" {
		return string(data), nil
	}

	var bundle map[string]json.RawMessage
	if err := json.Unmarshal(data, &bundle); err != nil {
		return "", fmt.Errorf("parse secret bundle %q: %w", name, err)
	}
	raw, ok := bundle[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret bundle %q", key, name)
	}

	// String values are returned unquoted; anything else verbatim JSON.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return string(raw), nil
}

// Close is a no-op for the file provider.
func (p *Provider) Close() error {
	return nil
}
