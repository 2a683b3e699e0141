package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/pagestore"
)

// SchemaCmd returns the schema command.
func SchemaCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("schema", flag.ContinueOnError),
		Usage: "schema",
		Short: "Show schema version and migrations",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %v", errUnexpectedArgs, args)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			io.Printf("db=%s\n", store.Path())
			io.Printf("version=%d\n", version)
			io.Printf("latest=%d\n", pagestore.LatestSchemaVersion())
			io.Println()
			io.Println("# migrations")

			for _, m := range pagestore.Migrations() {
				mark := "applied"
				if m.Version > version {
					mark = "pending"
				}

				suffix := ""
				if !m.Transactional {
					suffix = " (no transaction)"
				}

				io.Printf("%d %s [%s]%s\n", m.Version, m.Name, mark, suffix)
			}

			return nil
		},
	}
}
