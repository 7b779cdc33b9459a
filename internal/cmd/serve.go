package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bundlemux/bundlemux/errext"
	"github.com/bundlemux/bundlemux/errext/exitcodes"
	"github.com/bundlemux/bundlemux/internal/api"
	"github.com/bundlemux/bundlemux/internal/upstream"
)

const shutdownTimeout = 5 * time.Second

type cmdServe struct {
	root *rootCommand
}

func getCmdServe(root *rootCommand) *cobra.Command {
	c := &cmdServe{root: root}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the combined bundle and source map",
		Long: "Start the aggregation server, optionally launching the two upstream bundlers\n" +
			"as child processes, and serve their combined bundle and source map.",
		Example: `  # Aggregate two already running bundlers
  bundlemux serve --runtime-url http://127.0.0.1:8081 --app-url http://127.0.0.1:8082

  # Launch the bundlers too
  bundlemux serve --runtime-cmd "npm run serve:runtime" --app-cmd "npm run serve:app" --hot`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().AddFlagSet(serveFlagSet())
	return serveCmd
}

func (c *cmdServe) run(cmd *cobra.Command, _ []string) error {
	opts, err := getConsolidatedConfig(cmd.Flags())
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if errs := opts.Validate(); len(errs) != 0 {
		return errext.WithExitCodeIfNone(consolidateErrors(errs), exitcodes.InvalidConfig)
	}
	logger := c.root.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, app := origins(opts)

	mgr := upstream.NewManager(logger, afero.NewOsFs())
	if err := mgr.Start(ctx, commands(opts, runtime, app)); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.UpstreamFailed)
	}
	defer mgr.Stop()

	if err := mgr.WaitReady(ctx, runtime, app); err != nil {
		err = errext.WithHint(err, "make sure the upstream bundlers are running and reachable")
		return errext.WithExitCodeIfNone(err, exitcodes.UpstreamFailed)
	}

	srv := api.GetServer(opts.Address.String, api.Config{
		EntryName: opts.EntryName.String,
		Runtime:   runtime,
		App:       app,
		Compress:  opts.Compress.Bool,
	}, logger)

	srvErr := make(chan error, 1)
	go func() {
		logger.WithField("address", opts.Address.String).Debug("Starting the combined-artifact server")
		srvErr <- srv.ListenAndServe()
	}()

	bannerColor.Printf("bundlemux v%s serving http://%s/%s.bundle\n",
		cmd.Root().Version, opts.Address.String, opts.EntryName.String)

	select {
	case err := <-srvErr:
		return errext.WithExitCodeIfNone(err, exitcodes.CannotStartServer)
	case <-ctx.Done():
	}

	logger.Debug("Shutting down the combined-artifact server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Could not shut down the server cleanly")
	}
	return nil
}

func consolidateErrors(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("there were problems with the specified configuration:\n\t- %s",
		strings.Join(msgs, "\n\t- "))
}
