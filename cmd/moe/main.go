package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/handiism/listenmoe-client/internal/api"
	"github.com/handiism/listenmoe-client/internal/auth"
	"github.com/handiism/listenmoe-client/internal/config"
	"github.com/handiism/listenmoe-client/internal/gateway"
	"github.com/handiism/listenmoe-client/internal/http"
	"github.com/handiism/listenmoe-client/internal/logging"
	"github.com/handiism/listenmoe-client/internal/model"
	"github.com/handiism/listenmoe-client/internal/prefs"
)

var (
	// errUsage means the command already printed its usage.
	errUsage = errors.New("usage")

	// errReported means the command already printed its failures.
	errReported = errors.New("reported")
)

func main() {
	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app bundles what every command needs.
type app struct {
	settings *config.Settings
	library  model.Library
	session  *auth.Session
	http     *http.Client
	api      *api.Client
	logger   *slog.Logger

	in  *bufio.Reader
	out io.Writer
	err io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("moe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configFlag  = fs.String("config", config.DefaultPath(), "Path to config file")
		libraryFlag = fs.String("library", "", "Radio library: jpop or kpop (overrides config)")
		romajiFlag  = fs.Bool("romaji", false, "Prefer romanized titles and names")
		verboseFlag = fs.Bool("verbose", false, "Show debug logs")
		ephemeral   = fs.Bool("ephemeral", false, "Keep the session in memory only")
	)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	// Load config
	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *libraryFlag != "" {
		settings.Library = *libraryFlag
		if err := settings.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}
	if *romajiFlag {
		settings.PreferRomaji = true
	}
	if *ephemeral {
		settings.PreferencesURL = "memory:"
	}

	level := settings.LogLevel
	if *verboseFlag {
		level = "debug"
	}
	logger := logging.Init(level, settings.LogFormat, stderr)

	store, err := prefs.Open(settings.PreferencesURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening preferences: %v\n", err)
		return 1
	}
	defer store.Close()

	a := newApp(settings, store, logger, stdin, stdout, stderr)
	err = cmd.run(ctx, a, fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errReported):
		return 1
	case ctx.Err() != nil:
		fmt.Fprintln(stderr, "Cancelled.")
		return 130
	default:
		logger.Debug("command failed", "command", name, "err", err)
		fmt.Fprintf(stderr, "Error: %s\n", api.UserMessage(err))
		return 1
	}
}

func newApp(settings *config.Settings, store prefs.Store, logger *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) *app {
	lib := settings.RadioLibrary()
	hc := http.NewClient(
		http.WithBaseURL(settings.APIBase),
		http.WithTimeout(settings.Timeout.Std()),
		http.WithUserAgent(settings.UserAgent),
		http.WithLogger(logger),
	)
	session := auth.NewSession(store, nil)

	return &app{
		settings: settings,
		library:  lib,
		session:  session,
		http:     hc,
		api:      api.NewClient(hc, session, api.WithLibrary(lib), api.WithLogger(logger)),
		logger:   logger,
		in:       bufio.NewReader(stdin),
		out:      stdout,
		err:      stderr,
	}
}

// gateway returns a gateway client for the configured library that
// authenticates with the stored token.
func (a *app) gateway() *gateway.Client {
	return gateway.New(a.library.GatewayURL,
		gateway.WithAuth(a.session.AuthTokenWithPrefix),
		gateway.WithLogger(a.logger),
		gateway.WithHeartbeatFallback(a.settings.GatewayFallback.Std()),
	)
}

// flagSet returns the flag set of a subcommand.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("moe "+name, flag.ContinueOnError)
	fs.SetOutput(a.err)
	fs.Usage = func() {
		fmt.Fprintf(a.err, "Usage: moe %s %s\n", name, commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// usage prints the usage line of a subcommand and returns errUsage.
func (a *app) usage(name string) error {
	fmt.Fprintf(a.err, "Usage: moe %s %s\n", name, commands[name].usage)
	return errUsage
}

// prompt reads one line from stdin.
func (a *app) prompt(label string) string {
	fmt.Fprint(a.err, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "moe - LISTEN.moe radio client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  moe [options] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "For interactive mode, use: moe-tui")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
}
