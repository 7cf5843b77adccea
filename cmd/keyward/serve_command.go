package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/keyward/keyward"
	"github.com/keyward/keyward/config"
)

func serveCommand(ctx context.Context, configPath string, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	serveMux := fs.Bool("servemux", false, "Use the standard library router instead of httprouter")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	opts := []keyward.Option{keyward.WithLogOutput(stderr)}
	if *serveMux {
		opts = append(opts, keyward.WithRouterServeMux())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	app, srv, err := keyward.NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	slog.SetDefault(app.Logger())

	return srv.Run(ctx)
}
