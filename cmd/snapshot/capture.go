package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/portfolio-tracker/internal/adapter"
	"github.com/portfolio-tracker/internal/config"
	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/holdings"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
)

type captureCmd struct {
	cfg *config.Config
	out io.Writer

	first        bool
	month        string
	holdingsFile string
	storeFile    string
}

func newCaptureCmd(cfg *config.Config, out io.Writer) *captureCmd {
	return &captureCmd{cfg: cfg, out: out}
}

func (*captureCmd) Name() string { return "capture" }
func (*captureCmd) Synopsis() string {
	return "value the portfolio and store it as this month's snapshot"
}
func (*captureCmd) Usage() string {
	return `snapshot capture [-first] [-month YYYY-MM] [-holdings FILE] [-store FILE]

  Prices every holding, rounds the result and appends it to the snapshot
  store under the target month. A month that already has a snapshot is
  left untouched and the command fails.
`
}

func (c *captureCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.first, "first", false, "Mark this snapshot as the first one of the series.")
	f.StringVar(&c.month, "month", "", "Target month in YYYY-MM format (defaults to the current month).")
	f.StringVar(&c.holdingsFile, "holdings", c.cfg.Data.HoldingsFile, "Holdings YAML file to value.")
	f.StringVar(&c.storeFile, "store", c.cfg.Data.SnapshotsFile, "Snapshot YAML store to append to.")
}

func (c *captureCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", f.Args())
		return subcommands.ExitUsageError
	}
	if c.month != "" {
		if err := service.ValidateMonth(c.month); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}

	p := newPrinter(c.out)
	svc := c.snapshotService()
	p.captureHeader(c.targetMonth(svc), c.first)

	result, err := svc.Capture(ctx, service.CaptureInput{Month: c.month, IsFirst: c.first})
	if err != nil {
		if catErr := apperrors.Categorize(err); catErr.Code == apperrors.CodeSnapshotExists {
			total, _ := catErr.Details["totalValue"].(float64)
			month, _ := catErr.Details["month"].(string)
			p.snapshotExists(month, total)
			return subcommands.ExitFailure
		}
		if apperrors.HasCode(err, apperrors.CodeInvalidParameter) {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		p.failure(err)
		return subcommands.ExitFailure
	}

	p.captured(result, c.storeFile)
	return subcommands.ExitSuccess
}

func (c *captureCmd) targetMonth(svc *service.SnapshotService) string {
	if c.month != "" {
		return c.month
	}
	return svc.CurrentMonth()
}

func (c *captureCmd) snapshotService() *service.SnapshotService {
	prices := c.cfg.Prices
	coinGecko := adapter.NewCoinGeckoClient(prices.CoinGeckoBaseURL, prices.CoinGeckoAPIKey, prices.HTTPTimeout)
	dexScreener := adapter.NewDexScreenerClient(prices.DexScreenerBaseURL, prices.HTTPTimeout, prices.DexScreenerRPS)

	valuation := service.NewValuationService(coinGecko, dexScreener, prices.FetchConcurrency)
	return service.NewSnapshotService(
		storage.NewYAMLSnapshotStore(c.storeFile),
		holdings.NewFileSource(c.holdingsFile),
		valuation,
	)
}
