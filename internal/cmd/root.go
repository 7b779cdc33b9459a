// Package cmd implements the bundlemux command line interface.
package cmd

import (
	"errors"
	"fmt"
	stdlog "log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bundlemux/bundlemux/errext"
	"github.com/bundlemux/bundlemux/internal/build"
)

var bannerColor = color.New(color.FgCyan)

// This is to keep all fields needed for the main/root bundlemux command.
type rootCommand struct {
	cmd    *cobra.Command
	logger *logrus.Logger

	verbose bool
	logFmt  string
	noColor bool
}

func newRootCommand(logger *logrus.Logger) *rootCommand {
	c := &rootCommand{logger: logger}
	// the base command when called without any subcommands.
	c.cmd = &cobra.Command{
		Use:               "bundlemux",
		Short:             "bundlemux serves two bundler dev servers as a single bundle",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		Version:           build.Version,
	}
	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	c.cmd.AddCommand(getCmdServe(c), getCmdVersion())
	return c
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.logFmt, "log-format", "", "log output format ('text', 'json')")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	return flags
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if err := c.setupLogger(); err != nil {
		return err
	}
	// Sometimes the Go runtime uses the standard log output to log some
	// messages directly, e.g. when an invalid char is found in a Cookie.
	stdlog.SetOutput(c.logger.Writer())
	c.logger.Debugf("bundlemux version: v%s", build.Version)
	return nil
}

func (c *rootCommand) setupLogger() error {
	if c.verbose {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	if c.noColor {
		color.NoColor = true
	}
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	c.logger.SetOutput(colorable.NewColorableStderr())

	switch c.logFmt {
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
		c.logger.Debug("Logger format: JSON")
	case "text", "":
		c.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   stderrTTY && !c.noColor,
			DisableColors: c.noColor,
		})
	default:
		return fmt.Errorf("unsupported log format '%s'", c.logFmt)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main() and only needs to happen once.
func Execute() {
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	c := newRootCommand(logger)

	if err := c.cmd.Execute(); err != nil {
		exitCode := -1
		var ecerr errext.HasExitCode
		if errors.As(err, &ecerr) {
			exitCode = int(ecerr.ExitCode())
		}
		errText, fields := errext.Format(err)
		logger.WithFields(fields).Error(errText)
		os.Exit(exitCode)
	}
}
