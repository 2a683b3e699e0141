package cli

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/pagestore"
)

// AddCmd returns the add command.
func AddCmd(a *app) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringP("title", "t", "", "Page title")
	fs.String("date", "", "Page date (RFC 3339) [default: now]")

	return &Command{
		Flags: fs,
		Usage: "add <category> [flags] <url>",
		Short: "Save a new page",
		Long:  "Save a new page and print its id. Pass \"\" as url for a blank page.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execAdd(ctx, io, a, fs, args)
		},
	}
}

func execAdd(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	c, rest, err := categoryArg(args)
	if err != nil {
		return err
	}

	switch {
	case len(rest) == 0:
		return errURLRequired
	case len(rest) > 1:
		return fmt.Errorf("%w: %v", errUnexpectedArgs, rest[1:])
	}

	title, _ := fs.GetString("title")
	page := pagestore.Page{URL: rest[0], Title: title}

	if fs.Changed("date") {
		raw, _ := fs.GetString("date")

		page.Date, err = parseDate(raw)
		if err != nil {
			return err
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	ids, err := store.SaveItems(ctx, c, []pagestore.Page{page})
	if err != nil {
		return err
	}

	io.Println(ids[0])

	return nil
}

// UpdateCmd returns the update command.
func UpdateCmd(a *app) *Command {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.Int64("id", 0, "Id of the page to change (required)")
	fs.String("url", "", "New url")
	fs.StringP("title", "t", "", "New title (\"\" clears it)")
	fs.String("date", "", "New date (RFC 3339)")

	return &Command{
		Flags: fs,
		Usage: "update <category> --id <id> [flags]",
		Short: "Change a saved page",
		Long:  "Change the url, title or date of an existing page. Unset flags keep their value.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execUpdate(ctx, io, a, fs, args)
		},
	}
}

func execUpdate(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	c, rest, err := categoryArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return fmt.Errorf("%w: %v", errUnexpectedArgs, rest)
	}

	id, _ := fs.GetInt64("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be positive", errInvalidID)
	}

	if !fs.Changed("url") && !fs.Changed("title") && !fs.Changed("date") {
		return errNothingToSet
	}

	var date time.Time

	if fs.Changed("date") {
		raw, _ := fs.GetString("date")

		date, err = parseDate(raw)
		if err != nil {
			return err
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	pages, err := store.LoadItems(ctx, c, []int64{id})
	if err != nil {
		return err
	}

	if len(pages) == 0 {
		return fmt.Errorf("%w: %s %d", errPageNotFound, c, id)
	}

	page := pages[0]

	if fs.Changed("url") {
		page.URL, _ = fs.GetString("url")
	}

	if fs.Changed("title") {
		page.Title, _ = fs.GetString("title")
	}

	if fs.Changed("date") {
		page.Date = date
	}

	_, err = store.SaveItems(ctx, c, []pagestore.Page{page})
	if err != nil {
		return err
	}

	io.Println(page.ID)

	return nil
}
