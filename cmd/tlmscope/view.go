package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tlmscope/internal/series"
	"tlmscope/internal/tui"
)

var viewFlags planFlags

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse statistics interactively",
	Long:  "view fetches a plot action and opens a terminal viewer for filtering and windowing its statistics. Without a terminal it prints the statistics table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		p, err := a.prepare(ctx, cmd, &viewFlags)
		if err != nil {
			return err
		}
		resp, groups, err := a.fetchGroups(ctx, p)
		if err != nil {
			return err
		}

		if !term.IsTerminal(int(os.Stdout.Fd())) {
			lo, hi, _ := series.TimeRange(resp.Tlm)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStats(summarize(groups, lo, hi)))
			return nil
		}
		sessionID := uuid.NewString()
		a.log.Info("viewer session started", "session", sessionID, "project", p.Request.Project)
		_, err = tea.NewProgram(tui.New(sessionID, p.Request.Project, resp.Tlm, groups), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	viewFlags.bind(viewCmd)
}
