package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// FileName is the manifest file looked up in every package directory.
const FileName = "package.json"

// ErrNotFound is returned by [Reader.Read] when a directory has no package.json.
var ErrNotFound = errors.New("manifest not found")

// Reader loads the manifest of a package directory.
type Reader interface {
	// Read returns the parsed manifest in dir, or an error wrapping
	// ErrNotFound when dir contains no package.json.
	Read(dir string) (*Manifest, error)
}

// Manifest holds the package.json fields used for querying.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Description          string            `json:"description"`
	License              License           `json:"license"`
	Private              bool              `json:"private"`
	Resolved             string            `json:"_resolved"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	Workspaces           Workspaces        `json:"workspaces"`
}

// Field returns the string value of a top-level manifest field by its
// package.json key. Dependency maps report presence only ("" when declared).
func (m *Manifest) Field(key string) (string, bool) {
	switch key {
	case "name":
		return m.Name, m.Name != ""
	case "version":
		return m.Version, m.Version != ""
	case "description":
		return m.Description, m.Description != ""
	case "license":
		return string(m.License), m.License != ""
	case "_resolved":
		return m.Resolved, m.Resolved != ""
	case "dependencies":
		return "", len(m.Dependencies) > 0
	case "devDependencies":
		return "", len(m.DevDependencies) > 0
	case "optionalDependencies":
		return "", len(m.OptionalDependencies) > 0
	case "peerDependencies":
		return "", len(m.PeerDependencies) > 0
	}
	return "", false
}

// License accepts both the SPDX string form and the legacy
// {"type": "MIT"} object form.
type License string

// UnmarshalJSON implements json.Unmarshaler.
func (l *License) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = License(s)
		return nil
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Arrays of licenses and other oddities are ignored.
		*l = ""
		return nil
	}
	*l = License(obj.Type)
	return nil
}

// Workspaces accepts both the array form and the {"packages": [...]} form.
type Workspaces []string

// UnmarshalJSON implements json.Unmarshaler.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Packages []string `json:"packages"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*w = obj.Packages
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*w = list
	return nil
}

// Parse decodes package.json content.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DependencyNames returns every declared dependency name across all
// dependency maps, sorted and de-duplicated.
func (m *Manifest) DependencyNames() []string {
	var names []string
	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.OptionalDependencies, m.PeerDependencies} {
		for name := range deps {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// FileReader reads manifests from the local filesystem.
type FileReader struct{}

// Read implements [Reader].
func (FileReader) Read(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

var _ Reader = FileReader{}
