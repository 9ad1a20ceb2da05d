// Package pkg provides the libraries behind depquery, a selector query
// engine for installed npm dependency trees.
//
// # Overview
//
// Queries flow through four stages:
//
//	node_modules install tree
//	         ↓
//	    [tree] package (walk the tree, build the graph)
//	         ↓
//	    [selector] package (parse and evaluate a selector)
//	         ↓
//	    [io] package (serialize matches as JSON records)
//	         ↓
//	    JSON / table / DOT / SVG output
//
// [pipeline] runs the stages in order. [manifest] and [fsys] are the
// collaborators the builder reads the install tree through, [render/nodelink]
// draws the matched subgraph, and [errors] carries the codes shared by the
// CLI and the query server.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//		Root:     "./my-project",
//		Selector: ":root > .prod",
//	})
//	data, err := pipeline.Render(ctx, result, pipeline.FormatJSON)
package pkg
