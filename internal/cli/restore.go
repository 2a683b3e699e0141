package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/browser"
)

// RestoreCmd returns the restore command.
func RestoreCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("restore", flag.ContinueOnError),
		Usage: "restore",
		Short: "Restore tabs as the browser does on launch",
		Long: "Load the saved tabs and save each one again, as the browser does on\n" +
			"launch. With no saved tabs a tab is opened at home_url.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %v", errUnexpectedArgs, args)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			session := browser.NewSession(store, a.log, a.cfg.HomeURL)
			printPages(io, session.RestoreTabs(ctx))

			return nil
		},
	}
}
