package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	qio "github.com/matzehuels/depquery/pkg/io"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ResultModel - Interactive result browser
// =============================================================================

// ResultModel is the bubbletea model for browsing query results. Enter
// toggles a detail view of the record under the cursor.
type ResultModel struct {
	Records []qio.Record
	Cursor  int
	Offset  int
	Height  int
	Detail  bool
}

func newResultModel(records []qio.Record) ResultModel {
	return ResultModel{Records: records, Height: 15}
}

func (m ResultModel) Init() tea.Cmd {
	return nil
}

func (m ResultModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.Detail {
				return m, tea.Quit
			}
			m.Detail = false
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Records)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Records) > 0 {
				m.Detail = !m.Detail
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m ResultModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%d packages", len(m.Records))))
	b.WriteString("\n")
	if m.Detail {
		b.WriteString(listDimStyle.Render("⏎/esc back  q quit"))
		b.WriteString("\n\n")
		b.WriteString(recordDetail(m.Records[m.Cursor]))
		return b.String()
	}
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Records))
	for i := m.Offset; i < end; i++ {
		r := m.Records[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		location := r.Location
		if location == "" {
			location = "."
		}
		line := fmt.Sprintf("%s%-32s %s", cursor, r.PkgID, listDimStyle.Render(location))

		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case r.IsLink:
			b.WriteString(StyleLink.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.Records) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Records))))
	}
	return b.String()
}

// recordDetail renders every populated field of r, one per line.
func recordDetail(r qio.Record) string {
	var b strings.Builder
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	field := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteString(keyStyle.Render(k) + " " + StyleValue.Render(v) + "\n")
	}

	field("name", r.Name)
	field("version", r.Version)
	field("pkgid", r.PkgID)
	field("location", r.Location)
	field("path", r.Path)
	field("realpath", r.Realpath)
	if r.Resolved != nil {
		field("resolved", *r.Resolved)
	}
	field("isLink", fmt.Sprint(r.IsLink))
	field("isWorkspace", fmt.Sprint(r.IsWorkspace))
	if len(r.Dependencies) > 0 {
		b.WriteString(keyStyle.Render("dependencies") + "\n")
		for _, name := range slices.Sorted(maps.Keys(r.Dependencies)) {
			b.WriteString("  " + StyleValue.Render(name) + " " + listDimStyle.Render(r.Dependencies[name]) + "\n")
		}
	}
	return b.String()
}
