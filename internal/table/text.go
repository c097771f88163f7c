package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders the current page as aligned columns for terminals.
// Badges render as their key; the actions column lists action labels.
func WriteText(w io.Writer, t Viewer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := t.Headers()
	for i, hd := range headers {
		headers[i] = strings.ToUpper(hd)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}

	rows := t.Rows()
	if len(rows) == 0 {
		if _, err := fmt.Fprintln(tw, t.EmptyMessage()); err != nil {
			return err
		}
	}
	for _, row := range rows {
		cells := make([]string, 0, len(row.Cells)+1)
		for _, c := range row.Cells {
			cells = append(cells, sanitize(c.Text))
		}
		if t.HasActions() {
			labels := make([]string, len(row.Actions))
			for i, a := range row.Actions {
				labels[i] = a.Label
			}
			cells = append(cells, strings.Join(labels, ", "))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if t.ShowPagination() {
		_, err := fmt.Fprintf(w, "\nPage %d of %d (%d rows)\n", t.CurrentPage(), t.TotalPages(), t.Len())
		return err
	}
	return nil
}

// WriteCSV writes every row (ignoring pagination) as CSV. The actions
// column is omitted.
func WriteCSV(w io.Writer, t Viewer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnHeaders()); err != nil {
		return err
	}
	for _, row := range t.AllRows() {
		rec := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			rec[i] = c.Text
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
