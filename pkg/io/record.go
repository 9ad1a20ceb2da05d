package io

import (
	"github.com/matzehuels/depquery/pkg/tree"
)

// Record is the serialized form of a package node.
type Record struct {
	Name         string            `json:"name,omitempty"`
	Version      string            `json:"version,omitempty"`
	ID           string            `json:"_id,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	PkgID        string            `json:"pkgid"`
	Location     string            `json:"location"`
	Path         string            `json:"path"`
	Realpath     string            `json:"realpath"`
	Resolved     *string           `json:"resolved"`
	IsLink       bool              `json:"isLink"`
	IsWorkspace  bool              `json:"isWorkspace"`
}

// NewRecord converts n. Link nodes keep their own location and paths but
// report their target's package data.
func NewRecord(n *tree.Node) Record {
	r := Record{
		Name:        n.Name(),
		Version:     n.Version(),
		ID:          n.ID(),
		PkgID:       n.PkgID(),
		Location:    n.Location,
		Path:        n.Path,
		Realpath:    n.Realpath,
		IsLink:      n.IsLink,
		IsWorkspace: n.IsWorkspace,
	}
	if m := n.Package(); m != nil && len(m.Dependencies) > 0 {
		r.Dependencies = m.Dependencies
	}
	if n.Resolved != "" {
		resolved := n.Resolved
		r.Resolved = &resolved
	}
	return r
}

// Records converts nodes in order. The result is never nil.
func Records(nodes []*tree.Node) []Record {
	out := make([]Record, len(nodes))
	for i, n := range nodes {
		out[i] = NewRecord(n)
	}
	return out
}
