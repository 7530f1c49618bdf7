package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spigell/listing-advisor/internal/fit"
	"github.com/spigell/listing-advisor/internal/market"
	"github.com/spigell/listing-advisor/internal/report"
	"github.com/spigell/listing-advisor/internal/scoring"
)

var priorityOrder = []market.Priority{
	market.StrikeNow,
	market.ActNow,
	market.Lowball,
	market.Review,
	market.WalkAway,
	market.Skip,
}

func writeSummaries(w io.Writer, r report.Report) {
	if r.ClientSummary != "" {
		fmt.Fprintf(w, "%s\n\n", r.ClientSummary)
	}
	if len(r.Summaries) == 0 {
		fmt.Fprintln(w, "No listings matched well enough to recommend.")
		return
	}

	top := len(r.Categories.TopPicks)
	for i, s := range r.Summaries {
		switch i {
		case 0:
			if top > 0 {
				fmt.Fprintln(w, "== Top picks ==")
			} else {
				fmt.Fprintln(w, "== Other matches ==")
			}
		case top:
			fmt.Fprintln(w, "== Other matches ==")
		}
		fmt.Fprintf(w, "%s\n\n", s)
	}
}

func writeMarketActions(w io.Writer, r report.Report) {
	groups := r.ByPriority()
	for _, p := range priorityOrder {
		evs := groups[p]
		if len(evs) == 0 {
			continue
		}

		fmt.Fprintf(w, "== %s (%d) ==\n", p, len(evs))
		for _, ev := range evs {
			writeMarket(w, ev)
		}
		fmt.Fprintln(w)
	}
}

func writeMarket(w io.Writer, ev report.Evaluation) {
	l := ev.Scored.Listing
	fmt.Fprintf(w, "%s [fit %d]\n", l.Title(), ev.Fit.FitScore)
	for _, line := range ev.Market.StatusLines {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if chips := renderChips(ev.Fit.Chips); chips != "" {
		fmt.Fprintf(w, "  %s\n", chips)
	}
}

// writeEvaluation renders everything known about one listing.
func writeEvaluation(w io.Writer, ev report.Evaluation) {
	fmt.Fprintf(w, "%s\n\n", scoring.FormatSummary(ev.Scored))
	fmt.Fprintf(w, "== %s ==\n", ev.Market.Priority)
	writeMarket(w, ev)
}

func renderChips(chips []fit.Chip) string {
	parts := make([]string, 0, len(chips))
	for _, c := range chips {
		mark := "+"
		switch c.Kind {
		case fit.Hard:
			mark = "!"
		case fit.Soft:
			mark = "~"
		}
		parts = append(parts, mark+" "+c.Label)
	}
	return strings.Join(parts, "  ")
}
