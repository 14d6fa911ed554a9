package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/shelf/internal/session"
)

// shellExcluded cannot run from inside the shell.
var shellExcluded = map[string]bool{"serve": true, "shell": true}

func runShell(ctx context.Context, c *cli, _ []string) error {
	f, isFile := c.stdin.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) {
		return c.runScript(ctx)
	}

	cfg := &readline.Config{
		Prompt:          c.shellPrompt(),
		HistoryFile:     historyPath(),
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          c.stdout,
		Stderr:          c.stderr,
		// Every keystroke is user activity: it postpones the inactivity
		// logout and may trigger a throttled token refresh.
		Listener: readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
			c.app.Activity().Publish(session.ActivityKeyPress)
			return nil, 0, false
		}),
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("start shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(c.stdout, `shelf shell, type "help" for commands and "exit" to leave.`)
	for {
		rl.SetPrompt(c.shellPrompt())
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		if c.execLine(ctx, line) {
			return nil
		}
	}
}

// runScript executes piped input line by line. Each line counts as activity.
func (c *cli) runScript(ctx context.Context) error {
	for {
		line, err := c.in.ReadString('\n')
		if line != "" {
			c.app.Activity().Publish(session.ActivityKeyPress)
			if c.execLine(ctx, line) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// execLine runs one shell line and reports whether the shell should exit.
func (c *cli) execLine(ctx context.Context, line string) bool {
	args := parseArgs(strings.TrimSpace(line))
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		c.shellHelp()
		return false
	}

	cmd, ok := findCommand(args[0])
	if !ok || shellExcluded[cmd.name] {
		fmt.Fprintf(c.stderr, "unknown command: %s\n", args[0])
		return false
	}
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		c.printError(err)
	}
	return false
}

func (c *cli) shellPrompt() string {
	snap := c.app.Session().Snapshot()
	if snap.IsAuthenticated && snap.User != nil {
		return fmt.Sprintf("shelf(%s)> ", snap.User.Username)
	}
	return "shelf> "
}

func (c *cli) shellHelp() {
	for _, cmd := range commands {
		if shellExcluded[cmd.name] {
			continue
		}
		line := cmd.name
		if cmd.args != "" {
			line += " " + cmd.args
		}
		fmt.Fprintf(c.stdout, "  %-58s %s\n", line, cmd.summary)
	}
	fmt.Fprintln(c.stdout, "  exit")
}

func shellCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands)+2)
	for _, cmd := range commands {
		if shellExcluded[cmd.name] {
			continue
		}
		var children []readline.PrefixCompleterInterface
		for _, f := range strings.Fields(cmd.args) {
			f = strings.Trim(f, "[]")
			if strings.HasPrefix(f, "-") {
				children = append(children, readline.PcItem(f))
			}
		}
		items = append(items, readline.PcItem(cmd.name, children...))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("exit"))
	return readline.NewPrefixCompleter(items...)
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shelf", "history")
}

// parseArgs splits a shell line on spaces, keeping double-quoted runs
// together.
func parseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes, quoted := false, false

	flush := func() {
		if current.Len() > 0 || quoted {
			args = append(args, current.String())
			current.Reset()
		}
		quoted = false
	}

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return args
}
