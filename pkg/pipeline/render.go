package pipeline

import (
	"bytes"
	"context"
	"fmt"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/render/nodelink"
)

// Render serializes a query result. The table format is terminal-only and
// is rendered by the CLI.
func Render(ctx context.Context, result *Result, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := qio.WriteJSON(&buf, result.Records); err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(nodelink.ToDOT(result.Graph, result.Nodes, nodelink.Options{Detailed: true})), nil
	case FormatSVG:
		dot := nodelink.ToDOT(result.Graph, result.Nodes, nodelink.Options{})
		svg, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.ErrCodeInternal, err, "render svg")
		}
		return svg, nil
	default:
		return nil, qerrors.New(qerrors.ErrCodeUnsupported, "format %q is only available in the terminal", format)
	}
}
