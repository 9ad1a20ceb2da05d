package selector

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/depquery/pkg/tree"
)

// Combinator relates two compounds of a complex selector.
type Combinator byte

const (
	Descendant Combinator = ' '
	Child      Combinator = '>'
	Sibling    Combinator = '~'
)

// Selector is a parsed selector list.
type Selector struct {
	src  string
	list []*complexSel
}

// String returns the source text the selector was parsed from.
func (s *Selector) String() string { return s.src }

// complexSel is a chain of compounds. lead is the relative combinator of a
// :has() argument; it is zero at top level.
type complexSel struct {
	lead        Combinator
	compounds   []*compound
	combinators []Combinator // len(combinators) == len(compounds)-1
}

type compound struct {
	universal bool
	id        *idSel
	filters   []filter
	root      bool // includes :root, so virtual nodes may match
}

type idSel struct {
	name    string
	version *semver.Constraints // nil for a bare #name
}

type filter interface {
	match(ev *evaluator, n *tree.Node) bool
}

type attrOp string

const (
	opPresent  attrOp = ""
	opEquals   attrOp = "="
	opPrefix   attrOp = "^="
	opSuffix   attrOp = "$="
	opContains attrOp = "*="
	opWord     attrOp = "~="
	opDash     attrOp = "|="
)

type attrFilter struct {
	key   string
	op    attrOp
	value string
}

func (f attrFilter) test(v string) bool {
	switch f.op {
	case opEquals:
		return v == f.value
	case opPrefix:
		return strings.HasPrefix(v, f.value)
	case opSuffix:
		return strings.HasSuffix(v, f.value)
	case opContains:
		return strings.Contains(v, f.value)
	case opWord:
		for _, w := range strings.Fields(v) {
			if w == f.value {
				return true
			}
		}
		return false
	case opDash:
		return v == f.value || strings.HasPrefix(v, f.value+"-")
	}
	return true
}

type classFilter struct{ class string }

type pseudoFilter struct {
	name       string
	args       []*complexSel
	constraint *semver.Constraints
}

var classes = map[string]bool{
	"prod":      true,
	"dev":       true,
	"optional":  true,
	"peer":      true,
	"workspace": true,
}

var pseudos = map[string]bool{
	"root":    true,
	"link":    true,
	"empty":   true,
	"private": true,
	"missing": true,
	"not":     true,
	"is":      true,
	"has":     true,
	"semver":  true,
}
