// Package selector parses and evaluates dependency selectors: a small,
// CSS-inspired query language evaluated over a [tree.Graph] instead of a DOM.
//
// # Syntax
//
//	*                     every package (the default for an empty selector)
//	#lodash               packages named lodash
//	#lodash@^4.17.0       ... whose version satisfies a semver range
//	[name=a]              attribute equality (also ^= $= *= ~= |=)
//	[dependencies]        attribute presence
//	.prod .dev .optional .peer .workspace
//	                      dependency type of an incoming edge
//	:root :link :empty :private :missing
//	:not(sel) :is(sel) :has(sel) :has(> sel) :semver(range)
//
// Compounds are joined by combinators: whitespace (descendant, reachable
// through one or more edges), ">" (child, a direct edge) and "~" (sibling,
// sharing a dependent). A comma separates alternatives.
//
// Attributes are the structural fields location, path, realpath, pkgid and
// resolved plus the manifest fields name, version, description, license and
// the dependency maps (presence only).
//
// # Results
//
// [Evaluate] returns matching nodes once each, in graph order. [ResolveLinks]
// reports link nodes at their targets, which is what query output shows.
//
// The virtual root of a global install is only matched by compounds that
// include :root.
package selector
