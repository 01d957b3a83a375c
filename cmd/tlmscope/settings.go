package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tlmscope/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings [project]",
	Short: "List projects or the fields of one project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		s, err := config.LoadSettings(cfg.SettingsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, p := range s.Project {
				fmt.Fprintf(out, "%s\torbit=%s\tground=%s\n", p.PjName, p.OrbitDatasetPath, p.GroundTestPath)
			}
			return nil
		}
		proj, err := s.Lookup(args[0])
		if err != nil {
			return err
		}
		ps, err := config.LoadProject(cfg.SettingsDir, proj)
		if err != nil {
			return err
		}
		for _, f := range ps.Fields() {
			line := fmt.Sprintf("%s\t%d", f, ps.TlmID[f])
			if labels := ps.TlmSt[f]; len(labels) > 0 {
				var parts []string
				for v, l := range labels {
					parts = append(parts, v+"="+l)
				}
				sort.Strings(parts)
				line += "\t" + strings.Join(parts, ",")
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}
