package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	qio "github.com/matzehuels/depquery/pkg/io"
)

var tableHeaders = []string{"Package", "Location", "Link", "Workspace", "Resolved"}

// renderTable renders records as a bordered table, one row per record.
func renderTable(records []qio.Record) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = tableRow(r)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(records) {
				return base
			}
			switch {
			case col == 0 && records[row].IsLink:
				return base.Inherit(StyleLink)
			case col == 0:
				return base.Foreground(colorGreen)
			case col >= 2:
				return base.Foreground(colorDim)
			}
			return base
		})

	return t.Render()
}

func tableRow(r qio.Record) []string {
	location := r.Location
	if location == "" {
		location = "."
	}
	resolved := "—"
	if r.Resolved != nil {
		resolved = *r.Resolved
	}
	return []string{r.PkgID, location, strconv.FormatBool(r.IsLink), strconv.FormatBool(r.IsWorkspace), resolved}
}
