// Package cli is the command-line surface of shelf.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/app"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/notify"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

// errUsage marks errors caused by bad arguments. They exit with status 2.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

type globalOptions struct {
	APIURL      string
	Storage     string
	StoragePath string
	Profile     string
	LogLevel    string
	Timeout     time.Duration
	JSON        bool
	Ephemeral   bool
	Ordered     bool
}

type cli struct {
	app    *app.App
	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	json   bool

	// reported is set when an error was already shown as a notification.
	reported atomic.Bool
}

type command struct {
	name    string
	args    string
	summary string
	// anonymous commands run without restoring a session.
	anonymous bool
	run       func(ctx context.Context, c *cli, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "serve", summary: "run the local API server for the browser UI", run: runServe},
		{name: "register", args: "-username <name> -email <email>", summary: "create an account", anonymous: true, run: runRegister},
		{name: "login", args: "-email <email>", summary: "sign in and store the session", run: runLogin},
		{name: "logout", summary: "end the session and forget stored credentials", run: runLogout},
		{name: "whoami", summary: "show the signed-in user", run: runWhoami},
		{name: "refresh", summary: "exchange the token for a fresh one", run: runRefresh},
		{name: "list", args: "[-archived] [-q text] [-sort newest|oldest|title|relevance]", summary: "list bookmarks", run: runList},
		{name: "open", args: "<query>", summary: "print the URL of the best matching bookmark", run: runOpen},
		{name: "add", args: "-title <title> [-desc text] <url>", summary: "create a bookmark", run: runAdd},
		{name: "edit", args: "<id> [-title t] [-url u] [-desc d] [-icon u]", summary: "change a bookmark", run: runEdit},
		{name: "archive", args: "<id>...", summary: "move bookmarks to the archive", run: runArchive},
		{name: "unarchive", args: "<id>...", summary: "restore archived bookmarks", run: runUnarchive},
		{name: "rm", args: "<id>...", summary: "delete bookmarks", run: runDelete},
		{name: "import", args: "[-format auto|bookmarks|services] [-dry-run] <file>", summary: "import a Homepage config file", run: runImport},
		{name: "shell", summary: "interactive prompt; keystrokes keep the session alive", run: runShell},
	}
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// Run executes argv and returns the process exit status.
func Run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("shelf", flag.ContinueOnError)
	global.SetOutput(stderr)
	var opts globalOptions
	var help, showVersion bool
	global.StringVar(&opts.APIURL, "api", "", "backend API URL (default $SHELF_API_URL)")
	global.StringVar(&opts.Storage, "storage", "", "session storage: file, redis, sqlite or memory (default $SHELF_STORAGE or file)")
	global.StringVar(&opts.StoragePath, "storage-path", "", "file or sqlite path (default in the user config dir)")
	global.StringVar(&opts.Profile, "profile", "", "session profile name (default $SHELF_PROFILE or default)")
	global.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (default $SHELF_LOG_LEVEL or warn)")
	global.DurationVar(&opts.Timeout, "timeout", 0, "backend HTTP timeout (default $SHELF_HTTP_TIMEOUT or 15s)")
	global.BoolVar(&opts.JSON, "json", false, "print JSON instead of tables")
	global.BoolVar(&opts.Ephemeral, "ephemeral", false, "keep the session in memory only")
	global.BoolVar(&opts.Ordered, "ordered", false, "ignore out-of-order bookmark responses")
	global.BoolVar(&showVersion, "version", false, "show version")
	global.BoolVar(&help, "h", false, "show help")
	global.Usage = func() { fmt.Fprintln(stderr, usageRoot()) }

	if err := global.Parse(argv[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if help {
		fmt.Fprintln(stdout, usageRoot())
		return 0
	}
	if showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	args := global.Args()
	if len(args) == 0 {
		fmt.Fprintln(stderr, usageRoot())
		return 2
	}

	switch args[0] {
	case "help":
		fmt.Fprintln(stdout, usageRoot())
		return 0
	case "version":
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		fmt.Fprintln(stderr, usageRoot())
		return 2
	}

	cfg := config.Load()
	opts.apply(cfg)
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	c := &cli{stdin: stdin, in: bufio.NewReader(stdin), stdout: stdout, stderr: stderr, json: opts.JSON}
	ctx := context.Background()

	// Notifications go to stderr when stdout carries JSON.
	out := stdout
	if opts.JSON {
		out = stderr
	}
	var appOpts []app.Option
	if cmd.name != "serve" {
		appOpts = append(appOpts, app.WithNotifier(c.notifier(notify.Writer(out))))
	}
	a, err := app.New(ctx, cfg, log, appOpts...)
	if err != nil {
		return c.printError(err)
	}
	defer a.Close()
	c.app = a

	if !cmd.anonymous && cmd.name != "serve" {
		a.Restore(ctx)
		// Running a command counts as activity for the stored session.
		a.Session().StartActivityListener(a.Activity())
		a.Activity().Publish(session.ActivityKeyPress)
	}

	if err := cmd.run(ctx, c, args[1:]); err != nil {
		return c.printError(err)
	}
	return 0
}

func (o globalOptions) apply(cfg *config.Config) {
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.Storage != "" {
		cfg.Storage = strings.ToLower(o.Storage)
	}
	if o.StoragePath != "" {
		cfg.StoragePath = o.StoragePath
	}
	if o.Profile != "" {
		cfg.Profile = o.Profile
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Timeout > 0 {
		cfg.HTTPTimeout = o.Timeout
	}
	if o.Ephemeral {
		cfg.Storage = config.StorageMemory
	}
	if o.Ordered {
		cfg.OrderedResponses = true
	}
}

// notifier marks error notifications so printError does not repeat them.
func (c *cli) notifier(next notify.Notifier) notify.Notifier {
	return notify.Func(func(n notify.Notification) {
		if n.Level == notify.LevelError {
			c.reported.Store(true)
		}
		next.Notify(n)
	})
}

func (c *cli) printError(err error) int {
	code := 1
	if errors.Is(err, errUsage) {
		code = 2
	}
	if c.reported.Swap(false) && code == 1 {
		return code
	}
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		fmt.Fprintln(c.stderr, "error: not logged in, run `shelf login` first")
	default:
		fmt.Fprintln(c.stderr, "error:", err)
	}
	return code
}

func usageRoot() string {
	var b strings.Builder
	b.WriteString(`Usage:
  shelf [global flags] <command> [args]

Global flags:
  -api <url>            backend API URL (default $SHELF_API_URL)
  -storage <backend>    file, redis, sqlite or memory
  -storage-path <path>  file or sqlite location
  -profile <name>       keep several sessions side by side
  -log-level <level>    debug, info, warn or error
  -timeout 15s          backend HTTP timeout
  -json                 print JSON
  -ephemeral            do not persist the session
  -ordered              ignore out-of-order bookmark responses
  -version              show version

Commands:
`)
	for _, cmd := range commands {
		line := cmd.name
		if cmd.args != "" {
			line += " " + cmd.args
		}
		fmt.Fprintf(&b, "  %-58s %s\n", line, cmd.summary)
	}
	b.WriteString("  version\n  help")
	return b.String()
}
