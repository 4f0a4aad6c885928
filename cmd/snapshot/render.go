package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

// printer renders CLI output; colors are dropped when w is not a terminal
type printer struct {
	w io.Writer

	title   lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		label:   r.NewStyle().Bold(true),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
		warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB000")),
		failed:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4672")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// formatUSD renders v as dollars with thousands separators and two decimals
func formatUSD(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func (p *printer) captureHeader(month string, isFirst bool) {
	first := "No"
	if isFirst {
		first = "Yes"
	}
	fmt.Fprintf(p.w, "\n%s\n\n", p.title.Render("Portfolio Snapshot"))
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render("Month:"), month)
	fmt.Fprintf(p.w, "%s %s\n\n", p.label.Render("First snapshot:"), first)
}

func (p *printer) snapshotExists(month string, total float64) {
	fmt.Fprintf(p.w, "%s\n", p.warning.Render(fmt.Sprintf("Snapshot for %s already exists!", month)))
	fmt.Fprintf(p.w, "   Total value: %s\n\n", formatUSD(total))
	fmt.Fprintf(p.w, "%s\n\n", p.muted.Render("   Use -month YYYY-MM to specify a different month, or delete the existing snapshot first."))
}

func (p *printer) captured(result *service.CaptureResult, storePath string) {
	snap := result.Snapshot
	fmt.Fprintf(p.w, "%s\n\n", p.success.Render("Snapshot captured successfully!"))
	fmt.Fprintf(p.w, "   Month: %s\n", result.Month)
	fmt.Fprintf(p.w, "   Total Value: %s\n", formatUSD(snap.TotalValue))
	fmt.Fprintf(p.w, "   Assets: %d\n\n", len(snap.Assets))

	fmt.Fprintf(p.w, "   %s\n", p.label.Render("Breakdown:"))
	for _, a := range snap.Assets {
		fmt.Fprintf(p.w, "      %-10s %5.1f%%  %s\n", a.Symbol, a.Percentage, formatUSD(a.Value))
	}
	fmt.Fprintf(p.w, "\n   %s\n\n", p.muted.Render("Saved to: "+storePath))
}

func (p *printer) snapshotList(snapshots []models.MonthlySnapshot, storePath string) {
	if len(snapshots) == 0 {
		fmt.Fprintf(p.w, "%s\n", p.muted.Render("No snapshots in "+storePath))
		return
	}

	fmt.Fprintf(p.w, "%s\n\n", p.title.Render(fmt.Sprintf("Snapshots (%d)", len(snapshots))))
	for _, s := range snapshots {
		line := fmt.Sprintf("   %s  %16s  %2d assets", s.Month, formatUSD(s.Snapshot.TotalValue), len(s.Snapshot.Assets))
		if s.Snapshot.IsFirst {
			line += "  " + p.muted.Render("(first)")
		}
		fmt.Fprintln(p.w, line)
	}
	fmt.Fprintln(p.w)
}

func (p *printer) failure(err error) {
	fmt.Fprintf(p.w, "%s %v\n", p.failed.Render("Error:"), err)
}
