package main

import (
	"context"
	"flag"
	"io"

	"github.com/google/subcommands"

	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
)

type listCmd struct {
	cfg *config.Config
	out io.Writer

	storeFile string
}

func newListCmd(cfg *config.Config, out io.Writer) *listCmd {
	return &listCmd{cfg: cfg, out: out}
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list stored snapshots, newest month first" }
func (*listCmd) Usage() string {
	return `snapshot list [-store FILE]

  Prints every month in the snapshot store with its total value.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.storeFile, "store", c.cfg.Data.SnapshotsFile, "Snapshot YAML store to read.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p := newPrinter(c.out)

	// Listing never values anything, so no holdings or providers are needed
	svc := service.NewSnapshotService(storage.NewYAMLSnapshotStore(c.storeFile), nil, nil)
	snapshots, err := svc.List(ctx)
	if err != nil {
		p.failure(err)
		return subcommands.ExitFailure
	}

	p.snapshotList(snapshots, c.storeFile)
	return subcommands.ExitSuccess
}
