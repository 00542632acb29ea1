// Package testutil provides shared helpers for docstore tests: temp
// database locations and document fixtures.
package testutil

import (
	"path/filepath"
	"testing"
)

// TempDBPath returns a database file path inside a per-test temp dir.
// The file does not exist yet; opening the store creates it. Cleanup is
// handled by t.TempDir.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// Heroes returns the standard three-document fixture used across
// packages: levels 3/7/9 and hp 10/20/29, so level > 5 matches two
// documents and SUM(hp) is 59.
func Heroes() []map[string]any {
	return []map[string]any{
		{"name": "frodo", "level": 3, "hp": 10},
		{"name": "aragorn", "level": 7, "hp": 20},
		{"name": "gandalf", "level": 9, "hp": 29},
	}
}
