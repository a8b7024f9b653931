package cli

import (
	"fmt"
	"strings"

	"github.com/dalemusser/souqhub/internal/app/system/livesearch"
)

const searchHelp = "Enter: search  Esc: clear  Tab: show results  ↑/↓: choose  click: open  Ctrl-C: quit"

// dropdownLines is how many screen lines the dropdown occupies below the
// input line.
func dropdownLines(s livesearch.Snapshot) int {
	if !s.ResultsVisible {
		if s.IsFetching {
			return 1
		}
		return 0
	}
	if len(s.Results) == 0 {
		return 1
	}
	return len(s.Results)
}

// componentBounds is the search bar plus its open dropdown. Clicks outside
// it close the dropdown.
func componentBounds(s livesearch.Snapshot, width int) livesearch.Rect {
	return livesearch.Rect{
		Min: livesearch.Point{X: 0, Y: 0},
		Max: livesearch.Point{X: width, Y: 1 + dropdownLines(s)},
	}
}

// rowAt returns the index of the result under p, or -1.
func rowAt(s livesearch.Snapshot, p livesearch.Point) int {
	if !s.ResultsVisible || p.Y < 1 || p.Y > len(s.Results) {
		return -1
	}
	return p.Y - 1
}

// renderSearch lays out the search screen. highlight is the chosen row or -1.
func renderSearch(s livesearch.Snapshot, highlight int) []string {
	lines := []string{fmt.Sprintf("Search: %s█   [%s] [%s]", s.RawInput, s.Category, s.Location)}
	switch {
	case s.IsFetching && !s.ResultsVisible:
		lines = append(lines, "  searching...")
	case s.ResultsVisible && len(s.Results) == 0:
		lines = append(lines, "  no results")
	case s.ResultsVisible:
		for i, r := range s.Results {
			mark := " "
			if i == highlight {
				mark = ">"
			}
			lines = append(lines, fmt.Sprintf("%s %s · %s", mark, r.Title, r.Category))
		}
	}
	lines = append(lines, "", searchHelp)
	return lines
}

// frame turns lines into one raw-mode screen update.
func frame(lines []string) string {
	return clearScreen + strings.Join(lines, "\r\n")
}
