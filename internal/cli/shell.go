package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/netskip/internal/logging"
)

const shellPrompt = "netskip> "

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively against one open store",
		Long: "Read commands line by line and run them against one open store.\n" +
			"Accepts every command except shell itself, plus help and exit.\n" +
			"Arguments may be quoted with \"...\" or '...'.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %v", errUnexpectedArgs, args)
			}

			_, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			reader := newLineReader(a)
			defer reader.Close()

			return runShell(ctx, o, a, reader)
		},
	}
}

// lineReader is the input side of the shell.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

func newLineReader(a *app) lineReader {
	if f, ok := a.in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return newTermReader(a)
	}

	in := a.in
	if in == nil {
		in = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(in)}
}

func runShell(ctx context.Context, o *IO, a *app, reader lineReader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := reader.Prompt(shellPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reader.AppendHistory(line)

		args, err := splitLine(line)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		switch args[0] {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			printShellHelp(o, a)

			continue
		case "shell":
			o.ErrPrintln("error:", errNestedShell)

			continue
		}

		cmd := findCommand(commands(a), args[0])
		if cmd == nil {
			o.ErrPrintf("error: unknown command: %s (type 'help' for commands)\n", args[0])

			continue
		}

		code := cmd.Run(ctx, o, args[1:])
		a.log.Debug("shell command finished", logging.String("command", args[0]), logging.Int("exit_code", code))
	}
}

func printShellHelp(o *IO, a *app) {
	o.Println("Commands:")

	for _, cmd := range commands(a) {
		if cmd.Name() == "shell" {
			continue
		}

		o.Println(cmd.HelpLine())
	}

	o.Printf("  %-38s %s\n", "help", "Show this list")
	o.Printf("  %-38s %s\n", "exit", "Leave the shell")
	o.Println()
	o.Printf("Categories: %s\n", categoryList())
}

var errUnterminatedQuote = errors.New("unterminated quote")

// splitLine splits a shell line into arguments. Single and double quotes
// group words; an empty quoted string is kept as an empty argument.
func splitLine(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()

				inArg = false
			}
		default:
			current.WriteRune(r)

			inArg = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}

	if inArg {
		args = append(args, current.String())
	}

	return args, nil
}

// completions returns the words that may follow the text already typed.
func completions(a *app, line string) []string {
	words := strings.Fields(line)
	trailingSpace := strings.HasSuffix(line, " ")

	var (
		candidates []string
		prefix     string
		base       string
	)

	switch {
	case len(words) == 0 || (len(words) == 1 && !trailingSpace):
		for _, cmd := range commands(a) {
			if cmd.Name() != "shell" {
				candidates = append(candidates, cmd.Name())
			}
		}

		candidates = append(candidates, "help", "exit")

		if len(words) == 1 {
			prefix = words[0]
		}
	case (len(words) == 1 && trailingSpace) || (len(words) == 2 && !trailingSpace):
		if !takesCategory(a, words[0]) {
			return nil
		}

		candidates = strings.Split(categoryList(), "|")
		base = words[0] + " "

		if len(words) == 2 {
			prefix = words[1]
		}
	default:
		return nil
	}

	var out []string

	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, base+c)
		}
	}

	return out
}

func takesCategory(a *app, name string) bool {
	cmd := findCommand(commands(a), name)

	return cmd != nil && cmd.TakesCategory()
}

// scanReader reads lines from a non-terminal input without prompting.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}

	err := r.scanner.Err()
	if err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

// termReader wraps liner for interactive terminals. History is kept in
// $XDG_STATE_HOME/netskip/shell_history (or ~/.local/state/...).
type termReader struct {
	state       *liner.State
	historyPath string
	log         logging.Logger
}

func newTermReader(a *app) *termReader {
	r := &termReader{state: liner.NewLiner(), historyPath: historyPath(a.env), log: a.log}

	r.state.SetCtrlCAborts(true)
	r.state.SetCompleter(func(line string) []string { return completions(a, line) })

	if r.historyPath != "" {
		f, err := os.Open(r.historyPath)
		if err == nil {
			_, _ = r.state.ReadHistory(f)
			_ = f.Close()
		}
	}

	return r
}

func (r *termReader) Prompt(prompt string) (string, error) {
	return r.state.Prompt(prompt)
}

func (r *termReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *termReader) Close() error {
	if r.historyPath != "" {
		err := r.writeHistory()
		if err != nil {
			r.log.Warn("cannot save shell history", logging.String("path", r.historyPath), logging.Error(err))
		}
	}

	return r.state.Close()
}

func (r *termReader) writeHistory() error {
	err := os.MkdirAll(filepath.Dir(r.historyPath), 0o750)
	if err != nil {
		return err
	}

	f, err := os.Create(r.historyPath)
	if err != nil {
		return err
	}

	_, err = r.state.WriteHistory(f)

	return errors.Join(err, f.Close())
}

func historyPath(env map[string]string) string {
	if state := env["XDG_STATE_HOME"]; state != "" {
		return filepath.Join(state, "netskip", "shell_history")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".local", "state", "netskip", "shell_history")
	}

	return ""
}
