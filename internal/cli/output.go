package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printBookmarks(list []domain.Bookmark) error {
	if c.json {
		if list == nil {
			list = []domain.Bookmark{}
		}
		return c.printJSON(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.stdout, "No bookmarks.")
		return nil
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tURL\tVISITS\tCREATED")
	for _, b := range list {
		created := ""
		if !b.CreatedAt.IsZero() {
			created = b.CreatedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.ID, truncate(b.Body, 40), truncate(b.URL, 60), b.Visits, created)
	}
	return tw.Flush()
}

func (c *cli) printBookmark(b domain.Bookmark) error {
	if c.json {
		return c.printJSON(b)
	}
	fmt.Fprintf(c.stdout, "#%d %s\n  %s\n", b.ID, b.Body, b.URL)
	if b.Description != "" {
		fmt.Fprintf(c.stdout, "  %s\n", b.Description)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
