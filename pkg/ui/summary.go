package ui

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"xscraper/pkg/collector"
	"xscraper/pkg/scraper"
)

// RenderSummary writes one row per traversed list of rep
func RenderSummary(w io.Writer, rep *scraper.Report, limits collector.Limits) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("@" + rep.Identity + " • " + string(rep.State))

	t.AppendHeader(table.Row{"List", "Collected", "Target", "Stop reason", "Cycles", "Scrolls"})
	for _, out := range rep.Outcomes {
		t.AppendRow(table.Row{
			string(out.Kind),
			strconv.Itoa(out.Collected()),
			strconv.Itoa(Target(limits, out.Kind)),
			string(out.Reason),
			strconv.Itoa(out.Cycles),
			strconv.Itoa(out.ScrollAttempts),
		})
	}
	t.AppendFooter(table.Row{"total", strconv.Itoa(rep.Collected()), "", "", "", ""})
	t.Render()
}

// BatchRow is one identity of a batch summary
type BatchRow struct {
	Identity   string
	State      string
	Collected  int
	StopReason string
	Note       string
}

// RenderBatch writes the batch summary table
func RenderBatch(w io.Writer, rows []BatchRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Identity", "State", "Collected", "Stop reason", "Note"})
	total := 0
	for _, r := range rows {
		t.AppendRow(table.Row{"@" + r.Identity, r.State, strconv.Itoa(r.Collected), r.StopReason, r.Note})
		total += r.Collected
	}
	t.AppendFooter(table.Row{"", "", strconv.Itoa(total), "", ""})
	t.Render()
}
