package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/types"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func num(v *float64) string {
	if v == nil {
		return "—"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// PrintPlayer writes the record header and one row per derived metric.
func PrintPlayer(w io.Writer, v types.PlayerView) error {
	name := v.Name
	if name == "" {
		name = "(stats only)"
	}
	fmt.Fprintf(w, "%s  |  rank %s  |  APM %s  PPS %s  VS %s", name, v.Rank, num(v.APM), num(v.PPS), num(v.VS))
	if v.TR != nil {
		fmt.Fprintf(w, "  |  TR %s", num(v.TR))
	}
	fmt.Fprintln(w)

	table := newTable(w)
	table.Header("METRIC", "VALUE")
	for _, k := range calc.Kinds() {
		if k == calc.KindTRAccuracy && v.Metrics.TRAccuracy == nil {
			continue
		}
		if err := table.Append(k.String(), num(v.Metrics.Get(k))); err != nil {
			return fmt.Errorf("render %s: %w", k, err)
		}
	}
	return table.Render()
}

// PrintLeaderboard writes one row per leaderboard entry.
func PrintLeaderboard(w io.Writer, entries []types.Entry) error {
	table := newTable(w)
	table.Header("#", "NAME", "RANK", "TR", "APM", "PPS", "VS", "APP", "VS/APM", "EST_TR")
	for _, e := range entries {
		p := e.Player
		if err := table.Append(
			strconv.Itoa(e.Position), p.Name, p.Rank, num(p.TR), num(p.APM), num(p.PPS), num(p.VS),
			num(p.Metrics.APP), num(p.Metrics.VSAPM), num(p.Metrics.EstimatedTR),
		); err != nil {
			return fmt.Errorf("render entry %d: %w", e.Position, err)
		}
	}
	return table.Render()
}

// PrintAverages writes one row per rank average.
func PrintAverages(w io.Writer, avgs []types.PlayerView) error {
	table := newTable(w)
	table.Header("AVERAGE", "APM", "PPS", "VS", "TR", "APP", "DS/PIECE", "VS/APM", "CHEESE", "GE")
	for _, p := range avgs {
		if err := table.Append(
			p.Name, num(p.APM), num(p.PPS), num(p.VS), num(p.TR),
			num(p.Metrics.APP), num(p.Metrics.DSPieces), num(p.Metrics.VSAPM),
			num(p.Metrics.CheeseIndex), num(p.Metrics.GarbageEfficiency),
		); err != nil {
			return fmt.Errorf("render %s: %w", p.Name, err)
		}
	}
	return table.Render()
}
