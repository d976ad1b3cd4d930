package cmd

import (
	"context"
	"io"
	"os"

	"github.com/kozaktomas/image-search/internal/app"
	"github.com/kozaktomas/image-search/internal/config"
	"github.com/kozaktomas/image-search/internal/notify"
)

// openApp loads the configuration, builds a client session that prints
// notifications to stdout and loads the remote settings. Pass quiet for
// machine-readable output where notifications would get in the way.
func openApp(ctx context.Context, quiet bool) (*app.App, error) {
	cfg := config.Load()
	if captureDir != "" {
		cfg.Backend.CaptureDir = captureDir
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := config.NewLogger(cfg.Env, logOut)

	var opts []app.Option
	if !quiet {
		opts = append(opts, app.WithNotifier(notify.NewWriterSink(os.Stdout)))
	}

	a, err := app.New(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	return a, nil
}
