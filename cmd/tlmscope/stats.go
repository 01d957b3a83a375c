package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
	"tlmscope/internal/tui"
)

var (
	statsFlags      planFlags
	statsWindowFrom string
	statsWindowTo   string
	statsFilter     string
	statsKeepZero   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-series statistics for a plot action",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		p, err := a.prepare(ctx, cmd, &statsFlags)
		if err != nil {
			return err
		}
		resp, groups, err := a.fetchGroups(ctx, p)
		if err != nil {
			return err
		}

		session := series.NewSession(groups)
		session.Options.KeepZero = statsKeepZero
		if statsFilter != "" {
			pred, err := series.ParsePredicate(statsFilter)
			if err != nil {
				return err
			}
			if err := session.Apply(pred); err != nil {
				return err
			}
		}

		lo, hi, err := statsWindow(resp.Tlm)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStats(summarize(session.Current(), lo, hi)))
		return nil
	},
}

// statsWindow defaults to the full time range of tlm.
func statsWindow(tlm telemetry.Tlm) (time.Time, time.Time, error) {
	if statsWindowFrom != "" || statsWindowTo != "" {
		return series.ParseWindow(statsWindowFrom, statsWindowTo)
	}
	lo, hi, _ := series.TimeRange(tlm)
	return lo, hi, nil
}

func summarize(groups []telemetry.PlotGroup, lo, hi time.Time) []tui.PlotSummary {
	out := make([]tui.PlotSummary, len(groups))
	for i, g := range groups {
		out[i] = tui.PlotSummary{PlotID: g.PlotID, Summaries: series.SummarizeGroup(g, lo, hi)}
	}
	return out
}

func init() {
	statsFlags.bind(statsCmd)
	statsCmd.Flags().StringVar(&statsWindowFrom, "window-from", "", "Window start (yyyy-MM-dd HH:mm:ss)")
	statsCmd.Flags().StringVar(&statsWindowTo, "window-to", "", "Window end (yyyy-MM-dd HH:mm:ss)")
	statsCmd.Flags().StringVar(&statsFilter, "filter", "", `Threshold filter, e.g. "BAT_V >= 7.2"`)
	statsCmd.Flags().BoolVar(&statsKeepZero, "keep-zero", false, "Keep rows whose reference value is zero")
}
