package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrInvalidFlag      = errors.New("invalid flag provided")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrLoadConfig       = errors.New("failed to load config")
	ErrCreateDbPool     = errors.New("failed to create database pool")
	ErrMigrate          = errors.New("failed to apply migrations")
	ErrWriteOutput      = errors.New("failed to write output")
)

const usage = `Usage: keyward [-config path] [command] [command options]

Commands:
  serve         Run the HTTP server (default)
  migrate       Apply the database schema and exit
  dump-config   Print the effective configuration, secrets redacted

Without -config the defaults and the environment are used
(JWT_SECRET, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, FRONTEND_URL,
DATABASE_PATH, KEYWARD_ADDR).
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keyward", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to the TOML configuration file")
	fs.Usage = func() { _, _ = io.WriteString(stderr, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	command := "serve"
	cmdArgs := fs.Args()
	if len(cmdArgs) > 0 {
		command, cmdArgs = cmdArgs[0], cmdArgs[1:]
	}

	switch command {
	case "serve":
		return serveCommand(ctx, *configPath, cmdArgs, stderr)
	case "migrate":
		return migrateCommand(ctx, *configPath, cmdArgs, stdout, stderr)
	case "dump-config":
		return dumpConfigCommand(*configPath, cmdArgs, stdout, stderr)
	case "help":
		fs.Usage()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// noArgs rejects positional arguments left after a command's flags.
func noArgs(fs *flag.FlagSet) error {
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s", ErrTooManyArguments, strings.Join(fs.Args(), " "))
	}
	return nil
}
