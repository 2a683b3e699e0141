package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// categoryPlaceholder marks commands whose first argument is a category.
const categoryPlaceholder = "<category>"

// Command is one netskip subcommand. The same values back the one-shot
// command line and the shell, so a Command must not keep state between
// runs other than its FlagSet (see [commands]).
type Command struct {
	// Flags holds the command's own flags. Flags may appear anywhere
	// among the arguments; the rest reach Exec as positionals.
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "rm <category> <id>...".
	// A "<category>" placeholder enables category completion in the shell
	// and the category list in help.
	Usage string

	// Short is the one-line description in command listings.
	Short string

	// Long replaces Short in "netskip <cmd> --help" when set.
	Long string

	// Exec runs with flags parsed and receives the positional arguments.
	// A returned error is printed as "error: ..." and exits 1.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// TakesCategory reports whether the first argument is a page category.
func (c *Command) TakesCategory() bool {
	return strings.Contains(c.Usage, categoryPlaceholder)
}

// HelpLine returns the command's row in a command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-38s %s", c.Usage, c.Short)
}

// PrintHelp writes "netskip <cmd> --help" output to w.
func (c *Command) PrintHelp(w io.Writer) {
	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	fprintln(w, "Usage: netskip", c.Usage)
	fprintln(w)
	fprintln(w, desc)

	if c.TakesCategory() {
		fprintln(w)
		fprintln(w, "Categories:", categoryList())
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	fprintln(w)
	fprintln(w, "Flags:")
	c.Flags.SetOutput(w)
	c.Flags.PrintDefaults()
	c.Flags.SetOutput(io.Discard)
}

// Run parses args, executes the command and returns the exit code.
// --help prints help to stdout and exits 0. A flag error prints the error
// and help to stderr and exits 1.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(io.Discard)

	err := c.Flags.Parse(args)

	switch {
	case errors.Is(err, flag.ErrHelp):
		c.PrintHelp(o.out)

		return 0
	case err != nil:
		o.ErrPrintf("error: %s: %v\n\n", c.Name(), err)
		c.PrintHelp(o.errOut)

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
