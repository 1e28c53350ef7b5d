package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/xeenux-portal/internal/api"
	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/config"
	"github.com/sakif/xeenux-portal/internal/repository/sqlite"
	"github.com/sakif/xeenux-portal/internal/session"
)

// sessionID is the single session the CLI keeps.
const sessionID = "cli"

type rootOptions struct {
	BackendURL  string
	SessionPath string
	JSON        bool
	Verbose     bool
}

// app is what every command runs against. It is built in the root's
// PersistentPreRunE, after flags are parsed.
type app struct {
	opts     rootOptions
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlite.DB
	sessions *session.Manager
	base     *client.Client
	out      io.Writer
	errOut   io.Writer
}

// public is the API without credentials, for login and registration.
func (a *app) public() *api.API {
	return api.New(a.base)
}

// api is the API signed in as the stored session.
func (a *app) api() *api.API {
	return api.New(a.base.WithSession(a.sessions.Handle(sessionID)))
}

func (a *app) handle() *session.Handle {
	return a.sessions.Handle(sessionID)
}

// print writes v as indented JSON when --json is set, and calls text
// otherwise.
func (a *app) print(v any, text func(w io.Writer) error) error {
	if a.opts.JSON || text == nil {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(a.out)
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.opts.BackendURL != "" {
		cfg.BackendURL = a.opts.BackendURL
	}
	if err := cfg.ValidateBackend(); err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.SlogLevel()
	if !a.opts.Verbose && level < slog.LevelWarn {
		// token refreshes and request logs are noise on a terminal
		level = slog.LevelWarn
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	path := a.opts.SessionPath
	if path == "" {
		if path, err = defaultSessionPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if a.db, err = sqlite.New(path); err != nil {
		return err
	}
	a.sessions = session.NewManager(a.db, a.logger)

	a.base, err = client.New(client.Config{
		BaseURL:   cfg.BackendURL,
		Logger:    a.logger,
		UserAgent: "xeenuxctl",
		Timeout:   cfg.RequestTimeout,
	})
	return err
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func defaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".xeenux", "session.db"), nil
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "xeenuxctl",
		Short:         "Terminal client for the Xeenux platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.open()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.opts.BackendURL, "backend", "", "backend base URL (default $BACKEND_API_URL)")
	cmd.PersistentFlags().StringVar(&a.opts.SessionPath, "session", "", "session file (default ~/.xeenux/session.db)")
	cmd.PersistentFlags().BoolVar(&a.opts.JSON, "json", false, "print raw JSON")
	cmd.PersistentFlags().BoolVarP(&a.opts.Verbose, "verbose", "v", false, "log requests and token refreshes")

	cmd.AddCommand(newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a), newRegisterCmd(a))
	cmd.AddCommand(newDashboardCmd(a), newTreeCmd(a), newIncomesCmd(a), newTransactionsCmd(a))
	cmd.AddCommand(newPackagesCmd(a), newWithdrawCmd(a), newPurchaseCmd(a), newSwapCmd(a))
	cmd.AddCommand(newAdminCmd(a))
	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		if !alreadyReported(err) {
			fmt.Fprintln(os.Stderr, "error:", describe(err))
		}
		os.Exit(1)
	}
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, apperror.ErrSessionExpired):
		return "not logged in or session expired, run `xeenuxctl login`"
	case errors.As(err, new(*apperror.AppError)):
		return apperror.UserMessage(err)
	}
	return err.Error()
}
