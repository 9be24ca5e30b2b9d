package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const tablePadding = 2

// writeTable aligns rows under headers. Cells must not carry color codes:
// tabwriter counts escape bytes as width, so only headers are styled and
// they are styled after alignment.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	var buf strings.Builder
	writer := tabwriter.NewWriter(&buf, 0, 0, tablePadding, ' ', 0)
	if len(headers) > 0 {
		fmt.Fprintln(writer, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	lines := strings.SplitAfter(buf.String(), "\n")
	if len(headers) > 0 && len(lines) > 0 {
		header := strings.TrimSuffix(lines[0], "\n")
		lines[0] = colorize(header, roleTitle) + "\n"
	}
	_, err := io.WriteString(out, strings.Join(lines, ""))
	return err
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
