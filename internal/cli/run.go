// Package cli implements the netskip command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/config"
	"github.com/calvinalkan/netskip/internal/logging"
	"github.com/calvinalkan/netskip/internal/pagestore"
)

// app is the state shared by the commands of one invocation (or one shell
// session). The store is opened on first use so commands like print-config
// never create a database.
type app struct {
	cfg   config.Config
	log   logging.Logger
	in    io.Reader
	env   map[string]string
	store *pagestore.Store
}

func (a *app) openStore(ctx context.Context) (*pagestore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	store, err := pagestore.Open(ctx, pagestore.Options{Path: a.cfg.DBPathAbs, Logger: a.log})
	if err != nil {
		return nil, err
	}

	a.store = store

	return store, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}

	err := a.store.Close()
	a.store = nil

	return err
}

// commands returns a fresh set of commands bound to a. Flag sets keep
// parsed values, so each run needs its own set.
func commands(a *app) []*Command {
	return []*Command{
		LsCmd(a),
		AddCmd(a),
		UpdateCmd(a),
		RmCmd(a),
		ClearCmd(a),
		ExportCmd(a),
		ImportCmd(a),
		RestoreCmd(a),
		SchemaCmd(a),
		ShellCmd(a),
		PrintConfigCmd(a),
	}
}

func findCommand(cmds []*Command, name string) *Command {
	for _, cmd := range cmds {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

// Run is the main entry point. Returns exit code.
// A value on sigCh cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	globals := flag.NewFlagSet("netskip", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	dbPath := globals.String("db", "", "Use the page database at `path` (\":memory:\" for a throwaway store)")
	logLevel := globals.String("log-level", "", "Log `level` (debug|info|warn|error)")

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	err := globals.Parse(rest)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out, globals)

			return 0
		}

		o.ErrPrintln("error:", err)

		return 1
	}

	if globals.NArg() == 0 {
		printUsage(out, globals)

		return 0
	}

	name := globals.Arg(0)
	if name == "help" {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:  *workDir,
		ConfigPath:       *configPath,
		DBPathOverride:   *dbPath,
		LogLevelOverride: *logLevel,
		Env:              env,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	a := &app{cfg: cfg, log: logging.NewWriter(errOut, cfg.LogLevel), in: in, env: env}

	cmd := findCommand(commands(a), name)
	if cmd == nil {
		o.ErrPrintln("error: unknown command:", name)
		o.ErrPrintln()
		printUsage(errOut, globals)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	code := cmd.Run(ctx, o, globals.Args()[1:])

	closeErr := a.close()
	if closeErr != nil {
		o.ErrPrintln("error:", closeErr)

		code = 1
	}

	_ = a.log.Sync()

	return code
}

// printUsage writes the global help to w: stdout when asked for, stderr
// when it follows an error.
func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, "netskip - browser tabs, history and favorites store")
	fprintln(w)
	fprintln(w, "Usage: netskip [options] <command> [args]")
	fprintln(w)
	fprintln(w, "Options:")

	globals.SetOutput(w)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})

	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands(&app{}) {
		fprintln(w, cmd.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Categories:", categoryList())
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func categoryList() string {
	names := make([]string, 0, len(pagestore.Categories()))
	for _, c := range pagestore.Categories() {
		names = append(names, c.String())
	}

	return strings.Join(names, "|")
}

var errCategoryRequired = errors.New("category required")

// categoryArg consumes the leading category argument.
func categoryArg(args []string) (pagestore.Category, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w (%s)", errCategoryRequired, categoryList())
	}

	c, err := pagestore.ParseCategory(args[0])
	if err != nil {
		return 0, nil, err
	}

	return c, args[1:], nil
}
