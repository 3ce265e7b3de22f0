// Command trackreel renders GPS tracks into an animated frame sequence.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/job"
)

// AppName names the log files and the OTel service.
const AppName = "trackreel"

// errHelpHandled reports that usage was printed and nothing else is to do.
var errHelpHandled = errors.New("help handled")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	switch {
	case err == nil, errors.Is(err, errHelpHandled):
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "render cancelled")
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(stdout)
	configDir := fs.String("config-dir", ".", "directory holding "+config.FileName)
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Int("workers", 0, "snapshot workers, overrides render.workers")
	jobFlags := job.BindFlags(fs)

	j, err := jobFlags.Parse(args)
	if errors.Is(err, job.ErrHelp) {
		return errHelpHandled
	}
	if err != nil {
		return err
	}

	cfgErr := config.Load(*configDir)
	if cfgErr != nil && !config.IsNotFound(cfgErr) {
		return cfgErr
	}
	if err := viper.BindPFlag("logLevel", fs.Lookup("log-level")); err != nil {
		return err
	}
	if err := viper.BindPFlag("render.workers", fs.Lookup("workers")); err != nil {
		return err
	}

	a, err := newApp(stdout)
	if err != nil {
		return err
	}
	defer a.close()
	if cfgErr != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", cfgErr)
	}

	return a.render(ctx, j)
}
