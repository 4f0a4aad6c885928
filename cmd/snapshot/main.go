// Command snapshot records a monthly valuation of the portfolio into the snapshot store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	// Progress goes to stdout; logs stay on stderr and quiet by default
	logging.InitGlobalLogger(logging.ParseLogLevel(getenv("SNAPSHOT_LOG_LEVEL", "warn")), logging.FormatText)
	logger := logging.GetGlobalLogger()
	logger.SetOutput(os.Stderr)
	defer func() { _ = logger.Sync() }()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(newCaptureCmd(cfg, os.Stdout), "")
	commander.Register(newListCmd(cfg, os.Stdout), "")

	flag.Parse()
	ctx := logging.WithLogger(context.Background(), logger)
	os.Exit(int(commander.Execute(ctx)))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
