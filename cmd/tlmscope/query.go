package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var queryFlags planFlags

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the warehouse query for a plot action",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		queryFlags.orbit = true
		p, err := a.prepare(ctx, cmd, &queryFlags)
		if err != nil {
			return err
		}
		q, err := a.builder.Build(p.Request.OrbitDatasetPath, p.Request)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q)
		return nil
	},
}

func init() {
	queryFlags.bind(queryCmd)
}
