package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tlmscope/internal/config"
	"tlmscope/internal/fetch"
	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

const dateLayout = "2006-01-02"

// planFlags are the plot action flags shared by query, fetch, stats and view.
type planFlags struct {
	project   string
	orbit     bool
	stored    bool
	from, to  string
	plots     []string
	testCases []string
	choose    bool
}

func (f *planFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.project, "project", "", "Project name, e.g. DSX0201")
	cmd.Flags().BoolVar(&f.orbit, "orbit", true, "Fetch orbit telemetry (false for ground test)")
	cmd.Flags().BoolVar(&f.stored, "stored", false, "Stored rather than real-time orbit telemetry")
	cmd.Flags().StringVar(&f.from, "from", "", "First day (yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day (yyyy-mm-dd)")
	cmd.Flags().StringArrayVar(&f.plots, "plot", nil, "Plot as ID:FIELD1,FIELD2 (repeatable)")
	cmd.Flags().StringSliceVar(&f.testCases, "test-case", nil, "Ground test cases to include")
	cmd.Flags().BoolVar(&f.choose, "choose", false, "Restrict ground telemetry to --test-case")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("plot")
}

func parsePlot(s string) (series.PlotFields, error) {
	id, fields, ok := strings.Cut(s, ":")
	if !ok {
		return series.PlotFields{}, fmt.Errorf("plot %q: want ID:FIELD1,FIELD2", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return series.PlotFields{}, fmt.Errorf("plot %q: %w", s, err)
	}
	p := series.PlotFields{PlotID: n}
	for _, f := range strings.Split(fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			p.Fields = append(p.Fields, f)
		}
	}
	return p, nil
}

func (f *planFlags) dates() (telemetry.DateSetting, error) {
	var d telemetry.DateSetting
	var err error
	if d.StartDate, err = time.ParseInLocation(dateLayout, f.from, time.UTC); err != nil {
		return d, fmt.Errorf("--from: %w", err)
	}
	to := f.to
	if to == "" {
		to = f.from
	}
	if d.EndDate, err = time.ParseInLocation(dateLayout, to, time.UTC); err != nil {
		return d, fmt.Errorf("--to: %w", err)
	}
	return d, nil
}

// prepared is a ready request plus the project settings it was resolved with.
type prepared struct {
	fetch.Prepared
	project config.ProjectSettings
}

// prepare resolves the flags against the project settings and the ground
// test cases on disk. Warnings are logged and printed.
func (a *app) prepare(ctx context.Context, cmd *cobra.Command, f *planFlags) (prepared, error) {
	settings, err := config.LoadSettings(a.cfg.SettingsDir)
	if err != nil {
		return prepared{}, err
	}
	proj, err := settings.Lookup(f.project)
	if err != nil {
		return prepared{}, err
	}
	ps, err := config.LoadProject(a.cfg.SettingsDir, proj)
	if err != nil {
		return prepared{}, err
	}

	var available []string
	if proj.GroundTestPath != "" {
		if available, err = a.ground.TestCases(proj.GroundTestPath); err != nil {
			return prepared{}, err
		}
	}

	dates, err := f.dates()
	if err != nil {
		return prepared{}, err
	}
	plan := fetch.Plan{
		Project:          proj.PjName,
		OrbitDatasetPath: proj.OrbitDatasetPath,
		GroundTestPath:   proj.GroundTestPath,
		IsOrbit:          f.orbit,
		IsStored:         f.stored,
		IsChosen:         f.choose,
		Dates:            dates,
		TestCases:        f.testCases,
	}
	for _, s := range f.plots {
		p, err := parsePlot(s)
		if err != nil {
			return prepared{}, err
		}
		plan.Plots = append(plan.Plots, p)
	}

	out, err := fetch.Prepare(plan, ps.TlmID, available)
	for _, w := range out.Warnings {
		a.log.WarnContext(ctx, "request pruned", "project", proj.PjName, "warning", w)
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	if err != nil {
		return prepared{}, err
	}
	return prepared{Prepared: out, project: ps}, nil
}

// fetchGroups runs the request and reshapes the result into plot groups.
func (a *app) fetchGroups(ctx context.Context, p prepared) (telemetry.Response, []telemetry.PlotGroup, error) {
	resp := a.orch.Get(ctx, p.Request)
	if !resp.Success {
		return resp, nil, fmt.Errorf("%s", strings.Join(resp.ErrorMessages, "; "))
	}
	return resp, series.Reshape(resp.Tlm, p.Selections), nil
}
