// Package artifact manages the ephemeral files that hold secret material for
// the duration of one scoped session.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/blueberrycongee/secretscope/pkg/errors"
)

// Store owns the artifacts of a single session. It creates a private
// directory under the scratch location so artifacts never land in a
// caller-visible working tree, and uses random names so concurrent sessions
// cannot collide.
type Store struct {
	dir   string
	paths []string
}

// NewStore creates a session-private directory under scratchDir. An empty
// scratchDir falls back to the system temp directory.
func NewStore(scratchDir string) (*Store, error) {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	dir := filepath.Join(scratchDir, "secretscope-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session scratch directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the session-private directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write materializes one payload as a new artifact and returns its absolute
// path. The payload is written verbatim, readable only by the owning user.
func (s *Store) Write(payload string) (string, error) {
	path := filepath.Join(s.dir, uuid.New().String())
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		return "", err
	}
	s.paths = append(s.paths, path)
	return path, nil
}

// Paths returns the artifact paths in creation order.
func (s *Store) Paths() []string {
	return s.paths
}

// Sweep deletes every artifact and then the session directory. Each deletion
// is attempted regardless of earlier failures; failures are collected into
// the returned report and are never fatal.
func (s *Store) Sweep() *errors.CleanupReport {
	report := &errors.CleanupReport{}
	for _, path := range s.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			report.Warnings = append(report.Warnings, &errors.CleanupWarning{Path: path, Err: err})
		}
	}
	if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
		report.Warnings = append(report.Warnings, &errors.CleanupWarning{Path: s.dir, Err: err})
	}
	return report
}
