package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// HiddenLockfile is the path, relative to the tree root, of the lockfile npm
// maintains inside node_modules.
var HiddenLockfile = filepath.Join("node_modules", ".package-lock.json")

// LockEntry is a single "packages" entry of a v2/v3 lockfile.
type LockEntry struct {
	Version   string `json:"version"`
	Resolved  string `json:"resolved"`
	Integrity string `json:"integrity"`
	Link      bool   `json:"link"`
	Dev       bool   `json:"dev"`
}

// Lockfile maps install locations ("node_modules/a") to their entries.
type Lockfile struct {
	Packages map[string]LockEntry `json:"packages"`
}

// Resolved returns the recorded source for location, if any.
func (l *Lockfile) Resolved(location string) string {
	if l == nil {
		return ""
	}
	return l.Packages[location].Resolved
}

// ReadLockfile loads the hidden lockfile under root, falling back to
// package-lock.json. It returns (nil, nil) when neither exists; lockfiles are
// advisory and never required for a query.
func ReadLockfile(root string) (*Lockfile, error) {
	for _, name := range []string{HiddenLockfile, "package-lock.json"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var lock Lockfile
		if err := json.Unmarshal(data, &lock); err != nil {
			return nil, err
		}
		return &lock, nil
	}
	return nil, nil
}
