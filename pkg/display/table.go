package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatAspects implements Formatter.FormatAspects.
func (f *tableFormatter) FormatAspects(w io.Writer, aspects []pod.Aspect) error {
	if err := writeHeader(w, "Aspects", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(aspects))
	for i, aspect := range aspects {
		rows[i] = []string{aspect.ID, aspect.Name}
	}

	return f.writeTable(w, []string{"ID", "Name"}, rows)
}

// FormatServices implements Formatter.FormatServices.
func (f *tableFormatter) FormatServices(w io.Writer, services []pod.Service) error {
	if err := writeHeader(w, "Services", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(services))
	for i, service := range services {
		rows[i] = []string{service.Key, service.Name}
	}

	return f.writeTable(w, []string{"Key", "Name"}, rows)
}

// FormatPost implements Formatter.FormatPost.
func (f *tableFormatter) FormatPost(w io.Writer, post *pod.Post) error {
	if err := writeHeader(w, "Post Published", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"ID", fmt.Sprintf("%d", post.ID)},
		{"GUID", post.GUID},
		{"Visibility", visibility(post.Public, nil)},
		{"Text", truncate(post.Text, f.config.TextWidth)},
		{"Permalink", post.Permalink},
	}

	return f.writeTable(w, []string{"Field", "Value"}, rows)
}

// FormatPosts implements Formatter.FormatPosts.
func (f *tableFormatter) FormatPosts(w io.Writer, posts []*store.PostRecord) error {
	if err := writeHeader(w, "Post History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"ID", "Visibility", "Text", "Permalink"}
	if f.config.ShowTimestamps {
		header = append([]string{"Created"}, header...)
	}

	rows := make([][]string, len(posts))
	for i, post := range posts {
		row := []string{
			fmt.Sprintf("%d", post.ID),
			visibility(post.Public, post.Aspects),
			truncate(post.Text, f.config.TextWidth),
			post.Permalink,
		}
		if f.config.ShowTimestamps {
			row = append([]string{post.CreatedAt.Format("2006-01-02 15:04:05")}, row...)
		}
		rows[i] = row
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row. The last column is not padded.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
	}

	_, err := fmt.Fprintln(w, b.String())
	return err
}
