package io_test

import (
	"os"

	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/manifest"
	"github.com/matzehuels/depquery/pkg/tree"
)

func ExampleWriteJSON() {
	n := &tree.Node{
		Location: "node_modules/a",
		Path:     "/app/node_modules/a",
		Realpath: "/app/node_modules/a",
		Manifest: &manifest.Manifest{Name: "a", Version: "1.0.0"},
	}
	_ = qio.WriteJSON(os.Stdout, qio.Records([]*tree.Node{n}))
	// Output:
	// [
	//   {
	//     "name": "a",
	//     "version": "1.0.0",
	//     "_id": "a@1.0.0",
	//     "pkgid": "a@1.0.0",
	//     "location": "node_modules/a",
	//     "path": "/app/node_modules/a",
	//     "realpath": "/app/node_modules/a",
	//     "resolved": null,
	//     "isLink": false,
	//     "isWorkspace": false
	//   }
	// ]
}
