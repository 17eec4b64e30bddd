// Package cli is the headless front end. It drives the same application core
// as the desktop window: token store, interceptors, session and route guard.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"noote/client/internal/apiclient"
	"noote/client/internal/app"
	"noote/client/internal/config"
	"noote/client/internal/logging"
	"noote/client/internal/router"
)

// ErrLoginRequired is returned by commands for protected views when the guard
// redirects to the login route.
var ErrLoginRequired = errors.New("login required")

// Options configures the root command. Zero values mean the process defaults.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Config, when set, is used instead of loading config.yaml.
	Config *config.Config
	App    app.Options

	// ReadPassword prompts for a secret without echo.
	ReadPassword func(prompt string) (string, error)
}

// CommandError carries the user action that failed so the message can be
// chosen by error kind.
type CommandError struct {
	Action app.Action
	Err    error
}

func (e *CommandError) Error() string {
	return app.FailureMessage(e.Action, e.Err).Message
}

func (e *CommandError) Unwrap() error { return e.Err }

func fail(action app.Action, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLoginRequired) {
		return err
	}
	return &CommandError{Action: action, Err: err}
}

type env struct {
	opts   Options
	app    *app.Application
	logger *logging.Logger
	stdin  *bufio.Reader
}

// NewRootCommand builds the noote command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

// Execute runs the command tree with process defaults and releases the
// application afterwards, also when a command fails.
func Execute(ctx context.Context) error {
	root, e := newRoot(Options{})
	defer e.close()
	return root.ExecuteContext(ctx)
}

func newRoot(opts Options) (*cobra.Command, *env) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	e := &env{opts: opts, stdin: bufio.NewReader(opts.Stdin)}

	root := &cobra.Command{
		Use:           "noote",
		Short:         "Noote notes client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd)
		},
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.String("config", "", "path to config.yaml")
	flags.String("api-url", "", "backend base URL, overrides the config file")
	flags.String("log-level", "", "debug, info or error")

	root.AddCommand(
		e.loginCommand(),
		e.registerCommand(),
		e.logoutCommand(),
		e.whoamiCommand(),
		e.openCommand(),
		e.notesCommand(),
		e.collectionsCommand(),
	)
	return root, e
}

func (e *env) init(cmd *cobra.Command) error {
	if e.app != nil {
		return nil
	}
	cfg, err := e.loadConfig(cmd)
	if err != nil {
		return err
	}
	level := logging.LevelError
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		level = logging.ParseLevel(lvl)
	}
	e.logger = logging.NewWriter(e.opts.Stderr, level)

	application, err := app.New(cmd.Context(), cfg, e.logger, e.opts.App)
	if err != nil {
		return err
	}
	application.OnSessionReset(func(apiclient.ResetEvent) {
		fmt.Fprintln(e.opts.Stderr, "session expired, please log in again")
	})
	e.app = application
	return nil
}

func (e *env) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if e.opts.Config != nil {
		copied := *e.opts.Config
		cfg = &copied
	} else {
		appDir, err := config.DetectAppDir()
		if err != nil {
			return nil, fmt.Errorf("determine app directory: %w", err)
		}
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.DefaultPath(appDir)
		}
		cfg, err = config.Load(path, appDir)
		if err != nil {
			return nil, err
		}
	}
	if url, _ := cmd.Flags().GetString("api-url"); url != "" {
		cfg.APIBaseURL = strings.TrimRight(url, "/")
	}
	return cfg, nil
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// requireView navigates to a protected view first. When the guard redirects,
// the command stops before any request is sent.
func (e *env) requireView(ctx context.Context, path string) error {
	t, err := e.app.Navigate(ctx, path)
	if err != nil {
		return fail(app.ActionLoad, err)
	}
	if t.Outcome.Decision == router.Redirected {
		return ErrLoginRequired
	}
	return nil
}

func (e *env) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return e.app.RequestContext(cmd.Context())
}

func (e *env) readLine(prompt string) (string, error) {
	fmt.Fprint(e.opts.Stderr, prompt)
	line, err := e.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (e *env) readPassword(prompt string) (string, error) {
	if e.opts.ReadPassword != nil {
		return e.opts.ReadPassword(prompt)
	}
	if f, ok := e.opts.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.opts.Stderr, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.opts.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	return e.readLine(prompt)
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
