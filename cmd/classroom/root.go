package main

import (
	"context"
	"io"
	"strconv"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/tab"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type root struct {
	flags globalFlags
	in    io.Reader
	out   io.Writer
	app   *app
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	r := &root{in: in, out: out}
	cmd := &cobra.Command{
		Use:           "classroom",
		Short:         "Command line client for the classroom backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), &r.flags, r.in, r.out)
			if err != nil {
				return err
			}
			r.app = a
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if r.app != nil {
				r.app.close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(r.app.cfg.GetAppName())
			return cmd.Help()
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&r.flags.baseURL, "base-url", "", "backend base URL (overrides CLASSROOM_BASE_URL)")
	pf.StringVar(&r.flags.envFile, "env-file", ".env", "dotenv file to load")
	pf.StringVar(&r.flags.logLevel, "log-level", "", "log level (overrides CLASSROOM_LOG_LEVEL)")
	pf.StringVarP(&r.flags.output, "output", "o", formatTable, "output format: table or yaml")
	pf.StringVar(&r.flags.saveDir, "save-dir", ".", "directory downloads are saved to")
	pf.BoolVarP(&r.flags.yes, "yes", "y", false, "answer yes to every confirmation")
	pf.StringVar(&r.flags.demo, "demo", "", "run against a built-in demo backend signed in as this user (teacher or student)")

	cmd.AddCommand(
		r.loginCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.profileCommand(),
		r.passwordCommand(),
		r.classesCommand(),
		r.classCommand(),
		r.studentsCommand(),
		r.documentsCommand(),
		r.attendanceCommand(),
		r.leaveCommand(),
		r.questionsCommand(),
		r.examsCommand(),
		r.assignmentsCommand(),
		r.submissionsCommand(),
		r.scoresCommand(),
		r.noticesCommand(),
	)
	return cmd
}

// authed wraps fn so that it only runs with a valid session.
func (r *root) authed(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := r.app.requireSession(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd.Context(), r.app, args)
	}
}

func parseID(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.Errorf("invalid id %q", raw)
	}
	return v, nil
}

func requireParent(name string, v int64) error {
	if v <= 0 {
		return errors.Errorf("--%s is required", name)
	}
	return nil
}

// mount loads c for scope and turns a load failure into the banner text.
func mount[T any](ctx context.Context, c *tab.Controller[T], scope tab.Scope) (tab.Snapshot[T], error) {
	c.Mount(ctx, scope)
	snap := c.Snapshot()
	if snap.Status == tab.StatusError {
		return snap, errors.New(snap.Error)
	}
	return snap, nil
}

// report prints the outcome of a mutation on c.
func report[T any](a *app, c *tab.Controller[T], err error) error {
	if errors.Is(err, clienterrors.ErrNotConfirmed) {
		a.out.message("Cancelled.")
		return nil
	}
	snap := c.Snapshot()
	if err != nil {
		if snap.Error != "" {
			return errors.New(snap.Error)
		}
		return err
	}
	if snap.Flash != "" {
		a.out.message(snap.Flash)
	}
	return nil
}
