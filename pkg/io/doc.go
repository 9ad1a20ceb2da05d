// Package io serializes query results as JSON records.
//
// # Record Format
//
// Each matched node becomes one object. Keys appear in a fixed order so that
// output is byte-stable across runs:
//
//	{
//	  "name": "a",
//	  "version": "1.0.0",
//	  "_id": "a@1.0.0",
//	  "dependencies": {"b": "^1.0.0"},
//	  "pkgid": "a@1.0.0",
//	  "location": "node_modules/a",
//	  "path": "/project/node_modules/a",
//	  "realpath": "/project/node_modules/a",
//	  "resolved": null,
//	  "isLink": false,
//	  "isWorkspace": false
//	}
//
// name, version, _id and dependencies are omitted when unknown; _id is only
// present when both name and version are. resolved is always present and is
// null when the node has no source reference.
//
// # Reading and Writing
//
// [Records] converts nodes, [WriteJSON] encodes records as a two-space
// indented array, and [ReadJSON] decodes that array again. A query with no
// matches is written as [].
package io
