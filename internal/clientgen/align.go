package clientgen

import "strings"

// AlignColumns lays out rows of cells so that each column starts at the
// same offset on every line. The width of a column is the widest cell in it
// across all rows; every cell except a row's last is padded to that width
// and followed by one space. The last cell is never padded, so lines carry
// no trailing whitespace.
func AlignColumns(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	out := make([]string, len(rows))
	for r, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(cell)
			if i == len(row)-1 {
				break
			}
			line.WriteString(strings.Repeat(" ", widths[i]-len(cell)+1))
		}
		out[r] = line.String()
	}
	return out
}
