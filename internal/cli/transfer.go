package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/logging"
	"github.com/calvinalkan/netskip/internal/pagestore"
)

// ExportCmd returns the export command.
func ExportCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("export", flag.ContinueOnError),
		Usage: "export <category> <file>",
		Short: "Write pages to a JSON file",
		Long: "Write every page of a category to <file> as a JSON array, newest first.\n" +
			"The file is replaced atomically; readers never see a partial export.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execExport(ctx, io, a, args)
		},
	}
}

func execExport(ctx context.Context, io *IO, a *app, args []string) error {
	c, path, err := categoryAndFile(a, args)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	pages, err := store.LoadItems(ctx, c, nil)
	if err != nil {
		return err
	}

	if pages == nil {
		pages = []pagestore.Page{}
	}

	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}

	data = append(data, '\n')

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	a.log.Info("exported pages", logging.String("category", c.String()), logging.String("path", path), logging.Int("count", len(pages)))
	io.Printf("exported %d page(s) from %s to %s\n", len(pages), c, path)

	return nil
}

// ImportCmd returns the import command.
func ImportCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("import", flag.ContinueOnError),
		Usage: "import <category> <file>",
		Short: "Add pages from a JSON file",
		Long: "Read a JSON array of pages (as written by export) and save each one\n" +
			"as a new page. Ids in the file are ignored; pages without a date get now.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execImport(ctx, io, a, args)
		},
	}
}

func execImport(ctx context.Context, io *IO, a *app, args []string) error {
	c, path, err := categoryAndFile(a, args)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var pages []pagestore.Page

	err = json.Unmarshal(data, &pages)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for i := range pages {
		pages[i].ID = 0
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	ids, err := store.SaveItems(ctx, c, pages)
	if err != nil {
		return err
	}

	io.Printf("imported %d page(s) into %s\n", len(ids), c)

	return nil
}

func categoryAndFile(a *app, args []string) (pagestore.Category, string, error) {
	c, rest, err := categoryArg(args)
	if err != nil {
		return 0, "", err
	}

	switch {
	case len(rest) == 0:
		return 0, "", errFileRequired
	case len(rest) > 1:
		return 0, "", fmt.Errorf("%w: %v", errUnexpectedArgs, rest[1:])
	}

	path := rest[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.cfg.EffectiveCwd, path)
	}

	return c, path, nil
}
