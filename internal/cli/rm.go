package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <category> <id>...",
		Short: "Remove pages",
		Long:  "Remove the pages with the given ids. Unknown ids are ignored.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			c, rest, err := categoryArg(args)
			if err != nil {
				return err
			}

			if len(rest) == 0 {
				return errIDRequired
			}

			ids, err := parseIDs(rest)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			err = store.RemoveItems(ctx, c, ids)
			if err != nil {
				return err
			}

			io.Printf("removed %d id(s) from %s\n", len(ids), c)

			return nil
		},
	}
}

// ClearCmd returns the clear command.
func ClearCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear <category>",
		Short: "Remove every page of a category",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			c, rest, err := categoryArg(args)
			if err != nil {
				return err
			}

			if len(rest) > 0 {
				return fmt.Errorf("%w: %v", errUnexpectedArgs, rest)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			n, err := store.Count(ctx, c)
			if err != nil {
				return err
			}

			err = store.RemoveItems(ctx, c, nil)
			if err != nil {
				return err
			}

			io.Printf("cleared %d page(s) from %s\n", n, c)

			return nil
		},
	}
}
