package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/netskip/internal/pagestore"
)

// titleWidth is the display width of the title column in table output.
const titleWidth = 40

// formatPageLine renders one table row: id, UTC date, title, url.
// Titles are cut to titleWidth terminal cells so wide runes keep the URL
// column aligned.
func formatPageLine(p pagestore.Page) string {
	title := p.Title
	if title == "" {
		title = "-"
	}

	title = runewidth.Truncate(title, titleWidth, "…")
	pad := titleWidth - runewidth.StringWidth(title)

	url := p.URL
	if url == "" {
		url = "(blank)"
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%6d  ", p.ID))
	builder.WriteString(p.Date.UTC().Format(time.RFC3339))
	builder.WriteString("  ")
	builder.WriteString(title)
	builder.WriteString(strings.Repeat(" ", max(pad, 0)))
	builder.WriteString("  ")
	builder.WriteString(url)

	return builder.String()
}

func printPages(o *IO, pages []pagestore.Page) {
	for _, p := range pages {
		o.Println(formatPageLine(p))
	}
}

func printPagesJSON(o *IO, pages []pagestore.Page) error {
	if pages == nil {
		pages = []pagestore.Page{}
	}

	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}

	o.Println(string(data))

	return nil
}

// parseIDs parses positional id arguments. Ids must be positive.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidID, arg)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// parseDate accepts RFC 3339 with or without fractional seconds.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want RFC 3339, e.g. 2026-01-02T15:04:05Z)", errInvalidDate, s)
	}

	return t, nil
}
