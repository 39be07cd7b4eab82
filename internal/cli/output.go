// Package cli renders search results, explain output, import results and status for the
// gatherings command line, and talks to a running server over HTTP.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/gatherings/internal/importer"
	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/search"
	"github.com/hyperjump/gatherings/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is styled, human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one tab-separated line per record.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

const descriptionWidth = 200

// timeLayout is how happening times are shown in text output.
const timeLayout = "Mon 02 Jan 2006 15:04"

var (
	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Margin(1, 0)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	blockStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(1)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		return writeSearchCompact(w, resp)
	default:
		return writeSearchText(w, resp)
	}
}

func writeSearchCompact(w io.Writer, resp *models.SearchResponse) error {
	for _, l := range resp.Locations {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Title, strings.Join(l.Tags, ",")); err != nil {
			return err
		}
	}
	for _, h := range resp.Happenings {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			h.ID, h.StartTime.Format(time.RFC3339), h.Title, h.LocationTitle); err != nil {
			return err
		}
	}
	return nil
}

func writeSearchText(w io.Writer, resp *models.SearchResponse) error {
	noun := resp.Kind + "s"
	if resp.Total == 1 {
		noun = resp.Kind
	}
	summary := fmt.Sprintf("Found %d %s in %dms", resp.Total, noun, resp.QueryTime)
	if resp.Query != "" {
		summary = fmt.Sprintf("Found %d %s for %q in %dms", resp.Total, noun, resp.Query, resp.QueryTime)
	}
	var b strings.Builder
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString("\n")
	if resp.Total == 0 {
		b.WriteString(noDataStyle.Render("No matches."))
		b.WriteString("\n")
	}

	mark := func(s string) string { return matchStyle.Render(s) }
	hl := func(s string) string { return search.Highlight(s, resp.Keywords, mark) }

	for _, l := range resp.Locations {
		var block strings.Builder
		block.WriteString(titleStyle.Render(hl(l.Title)))
		var meta []string
		if l.Address != "" {
			meta = append(meta, l.Address)
		}
		if l.Wifi {
			meta = append(meta, "wifi")
		}
		if l.Closed {
			meta = append(meta, "closed")
		}
		if len(meta) > 0 {
			block.WriteString("\n" + metaStyle.Render(strings.Join(meta, " · ")))
		}
		writeBody(&block, hl(utils.Truncate(l.Description, descriptionWidth)), l.URL, l.Tags, hl)
		block.WriteString("\n" + metaStyle.Render("id: "+l.ID))
		b.WriteString(blockStyle.Render(block.String()))
		b.WriteString("\n")
	}

	for _, h := range resp.Happenings {
		var block strings.Builder
		block.WriteString(titleStyle.Render(hl(h.Title)))
		when := h.StartTime.Format(timeLayout)
		if h.EndTime != nil {
			when += " to " + h.EndTime.Format(timeLayout)
		}
		if h.LocationTitle != "" {
			when += " @ " + h.LocationTitle
		}
		block.WriteString("\n" + metaStyle.Render(when))
		writeBody(&block, hl(utils.Truncate(h.Description, descriptionWidth)), h.URL, h.Tags, hl)
		block.WriteString("\n" + metaStyle.Render("id: "+h.ID))
		b.WriteString(blockStyle.Render(block.String()))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeBody(b *strings.Builder, description, url string, tags []string, hl func(string) string) {
	if description != "" {
		b.WriteString("\n" + description)
	}
	if url != "" {
		b.WriteString("\n" + url)
	}
	if len(tags) > 0 {
		rendered := make([]string, len(tags))
		for i, t := range tags {
			rendered[i] = tagStyle.Render("#" + hl(t))
		}
		b.WriteString("\n" + strings.Join(rendered, " "))
	}
}

// WriteExplain writes the SQL a search compiles to.
func WriteExplain(w io.Writer, resp *models.ExplainResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	args := make([]string, len(resp.Args))
	for i, a := range resp.Args {
		args[i] = fmt.Sprintf("%#v", a)
	}
	if format == OutputCompact {
		_, err := fmt.Fprintf(w, "%s\t[%s]\n", resp.SQL, strings.Join(args, ", "))
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n\n%s\n",
		titleStyle.Render("-- "+resp.Kind+" search"),
		resp.SQL,
		metaStyle.Render("args: ["+strings.Join(args, ", ")+"]"),
	)
	return err
}

// WriteImportResults writes one line per imported file.
func WriteImportResults(w io.Writer, results []*importer.Result, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*importer.Result{}
		}
		return writeJSON(w, results)
	}
	for _, r := range results {
		var err error
		if format == OutputCompact {
			_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Path, r.Locations, r.Happenings, r.Removed)
		} else {
			_, err = fmt.Fprintf(w, "%s %s\n", titleStyle.Render(r.Path),
				metaStyle.Render(fmt.Sprintf("%d locations, %d happenings, %d removed", r.Locations, r.Happenings, r.Removed)))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
