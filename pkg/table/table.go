// Package table renders pterm tables without trailing cell padding.
package table

import (
	"strings"

	"github.com/pterm/pterm"
)

// PrintTableNoPad renders data and strips the padding pterm adds after the
// last column, so copied output does not carry trailing whitespace.
func PrintTableNoPad(data pterm.TableData, hasHeader bool) {
	out, err := pterm.DefaultTable.WithHasHeader(hasHeader).WithData(data).Srender()
	if err != nil {
		pterm.Error.Printf("Failed to render table: %v\n", err)
		return
	}

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	pterm.Println(strings.Join(lines, "\n"))
}
