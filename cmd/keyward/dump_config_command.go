package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/keyward/keyward/config"
)

// dumpConfigCommand prints the configuration the server would run with.
// -defaults prints the built in defaults without reading the file or the
// environment and without validation, as a starting point for a new file.
func dumpConfigCommand(configPath string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dump-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaults := fs.Bool("defaults", false, "Print the defaults only")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if err := noArgs(fs); err != nil {
		return err
	}

	cfg := config.NewDefaultConfig()
	if !*defaults {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	if err := config.Dump(stdout, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
