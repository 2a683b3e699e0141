package cli

import (
	"context"
	"fmt"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/pagestore"
)

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.Bool("json", false, "Print pages as a JSON array")
	fs.Int64Slice("id", nil, "Only show the page with this id (repeatable)")

	return &Command{
		Flags: fs,
		Usage: "ls <category> [flags]",
		Short: "List pages",
		Long:  "List the pages of a category, newest first.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execLs(ctx, io, a, fs, args)
		},
	}
}

func execLs(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	c, rest, err := categoryArg(args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return fmt.Errorf("%w: %v", errUnexpectedArgs, rest)
	}

	ids, _ := fs.GetInt64Slice("id")
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %d", errInvalidID, id)
		}
	}

	asJSON, _ := fs.GetBool("json")

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	pages, err := store.LoadItems(ctx, c, ids)
	if err != nil {
		return err
	}

	for _, id := range missingIDs(ids, pages) {
		io.Warn(fmt.Sprintf("%s page %d not found", c, id), fmt.Sprintf("run 'netskip ls %s' to see existing ids", c))
	}

	if asJSON {
		return printPagesJSON(io, pages)
	}

	printPages(io, pages)

	return nil
}

func missingIDs(want []int64, pages []pagestore.Page) []int64 {
	var missing []int64

	for _, id := range want {
		found := slices.ContainsFunc(pages, func(p pagestore.Page) bool { return p.ID == id })
		if !found && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}

	return missing
}
