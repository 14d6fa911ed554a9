package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/bookmarks"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/importer"
	"github.com/MrSnakeDoc/shelf/internal/sources/homepage"
)

func runList(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "list")
	archived := fs.Bool("archived", false, "list the archive")
	query := fs.String("q", "", "filter by title, URL or description")
	order := fs.String("sort", "", "newest, oldest, title or relevance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	view := bookmarks.ViewActive
	fetch := c.app.Bookmarks().FetchBookmarks
	if *archived {
		view = bookmarks.ViewArchived
		fetch = c.app.Bookmarks().FetchArchivedBookmarks
	}
	if _, err := fetch(ctx); err != nil {
		return err
	}
	return c.printBookmarks(c.app.Bookmarks().Search(view, *query, domain.ParseSortOrder(*order)))
}

// runOpen prints only the URL so it can feed a browser:
// xdg-open "$(shelf open grafana prod)".
func runOpen(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return usageError("open: missing query")
	}
	list, err := c.app.Bookmarks().FetchBookmarks(ctx)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	b, ok := domain.BestMatch(list, query)
	if !ok {
		return fmt.Errorf("no bookmark matches %q", query)
	}
	if c.json {
		return c.printJSON(b)
	}
	fmt.Fprintln(c.stdout, b.URL)
	return nil
}

func runAdd(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "add")
	title := fs.String("title", "", "bookmark title")
	desc := fs.String("desc", "", "description")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("add: expected exactly one URL")
	}

	b, err := c.app.Bookmarks().CreateBookmark(ctx, *title, fs.Arg(0), *desc)
	if err != nil {
		return err
	}
	return c.printBookmark(b)
}

func runEdit(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return usageError("edit: missing bookmark id")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	fs := newFlagSet(c, "edit")
	title := fs.String("title", "", "new title")
	url := fs.String("url", "", "new URL")
	desc := fs.String("desc", "", "new description")
	icon := fs.String("icon", "", "new icon URL")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	// Only flags given on the command line are sent.
	var patch domain.BookmarkPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Body = title
		case "url":
			patch.URL = url
		case "desc":
			patch.Description = desc
		case "icon":
			patch.IconURL = icon
		}
	})

	b, err := c.app.Bookmarks().UpdateBookmark(ctx, id, patch)
	if err != nil {
		return err
	}
	return c.printBookmark(b)
}

func runArchive(ctx context.Context, c *cli, args []string) error {
	return eachID(args, "archive", func(id int64) error {
		_, err := c.app.Bookmarks().ArchiveBookmark(ctx, id, true)
		return err
	})
}

func runUnarchive(ctx context.Context, c *cli, args []string) error {
	return eachID(args, "unarchive", func(id int64) error {
		_, err := c.app.Bookmarks().ArchiveBookmark(ctx, id, false)
		return err
	})
}

func runDelete(ctx context.Context, c *cli, args []string) error {
	return eachID(args, "rm", func(id int64) error {
		return c.app.Bookmarks().DeleteBookmark(ctx, id)
	})
}

// eachID runs fn for every id and joins the failures. Authentication
// failures stop the loop.
func eachID(args []string, name string, fn func(int64) error) error {
	if len(args) == 0 {
		return usageError("%s: missing bookmark id", name)
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	var errs []error
	for _, id := range ids {
		if err := fn(id); err != nil {
			if errors.Is(err, domain.ErrNotAuthenticated) || domain.IsUnauthorized(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("#%d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid bookmark id %q", s)
	}
	return id, nil
}

func runImport(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "import")
	format := fs.String("format", "auto", "auto, bookmarks or services")
	dryRun := fs.Bool("dry-run", false, "count what would be created")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("import: expected exactly one file")
	}
	f, err := homepage.ParseFormat(*format)
	if err != nil {
		return usageError("import: %v", err)
	}

	res, err := c.app.Importer(*dryRun).Import(ctx, fs.Arg(0), f)
	if err != nil {
		return err
	}
	if c.json {
		return c.printJSON(res)
	}
	fmt.Fprintf(c.stdout, "Import finished: %s\n", res)
	for _, e := range res.Errors {
		fmt.Fprintf(c.stderr, "  %v\n", e)
	}
	return nil
}

var _ importer.Store = (*bookmarks.Store)(nil)
