// Package cli implements the equipkeeper command line. Every command runs
// on behalf of the user named by the access token, except the bootstrap
// commands migrate, users add and token issue.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server"
	"github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/spf13/cobra"
)

// seams for tests
var (
	loadConfig = config.LoadConfig
	newApp     = server.NewApp
)

type runtime struct {
	args   []string
	out    io.Writer
	errOut io.Writer

	token           string
	metricsTextfile string

	app *server.App
}

// Execute runs the command line in args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{args: args, out: stdout, errOut: stderr}

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if rt.app != nil {
		err = errors.Join(err, rt.app.Close(ctx, rt.metricsTextfile))
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "equipkeeper",
		Short:         "Track maintenance of boats, vehicles and their equipment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rt.token, "token", "", "access token (default $"+common.AccessTokenEnvName+")")
	pf.StringVar(&rt.metricsTextfile, "metrics-textfile", "", "write metrics in the textfile collector format on exit")
	pf.StringP("config", "c", "", "config file (json or yaml)")
	// Config flags are parsed by the config package from the raw arguments;
	// cobra only needs to accept them.
	pf.AddGoFlagSet(config.NewFlagSet(&config.Config{}))

	root.AddCommand(
		newMigrateCommand(rt),
		newUsersCommand(rt),
		newTokenCommand(rt),
		newAssetsCommand(rt),
		newEquipmentCommand(rt),
		newTasksCommand(rt),
		newEntriesCommand(rt),
		newStatusCommand(rt),
		newImagesCommand(rt),
	)
	return root
}

func (rt *runtime) setup(ctx context.Context) error {
	cfg, err := loadConfig(rt.args)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, rt.errOut)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	rt.app = app
	return nil
}

// principal resolves the acting user from --token or the environment.
func (rt *runtime) principal(ctx context.Context) (string, error) {
	token := rt.token
	if token == "" {
		token = os.Getenv(common.AccessTokenEnvName)
	}

	u, err := rt.app.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// exitCode maps error classes to distinct exit statuses for scripts.
func exitCode(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return 2
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrorForbidden):
		return 3
	case errors.Is(err, common.ErrorNotFound):
		return 4
	default:
		return 1
	}
}
