package fetch

import (
	"errors"
	"fmt"

	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

// ErrTestCaseNotChosen is returned when test case selection is on but
// none of the chosen cases exist.
var ErrTestCaseNotChosen = errors.New("Test case not selected, although Choose test cases is on")

// Plan describes a plot action before it is turned into a request.
type Plan struct {
	Project          string
	OrbitDatasetPath string
	GroundTestPath   string

	IsOrbit   bool
	IsStored  bool
	IsChosen  bool
	Dates     telemetry.DateSetting
	TestCases []string
	Plots     []series.PlotFields
}

// Prepared is a request ready for the orchestrator together with the plot
// selections to reshape its result and any warnings raised on the way.
type Prepared struct {
	Request    telemetry.Request
	Selections []telemetry.Selection
	Warnings   []string
}

// Prepare checks p against the project's field mapping and available test
// cases. Unknown fields and test cases are dropped with a warning.
func Prepare(p Plan, tlmID map[string]int, available []string) (Prepared, error) {
	if p.IsOrbit && p.OrbitDatasetPath == "" {
		return Prepared{}, fmt.Errorf("Orbit telemetry for %s not found", p.Project)
	}
	if !p.IsOrbit && len(available) == 0 {
		return Prepared{}, fmt.Errorf("Ground test telemetry for %s not found", p.Project)
	}

	var out Prepared
	cases, warnings := series.PruneTestCases(p.TestCases, available)
	out.Warnings = append(out.Warnings, warnings...)
	if p.IsChosen && len(cases) == 0 {
		return out, ErrTestCaseNotChosen
	}

	sel, sources, warnings, err := series.BuildSelections(p.Plots, tlmID)
	out.Warnings = append(out.Warnings, warnings...)
	if err != nil {
		return out, err
	}
	out.Selections = sel
	out.Request = telemetry.Request{
		Project:          p.Project,
		IsOrbit:          p.IsOrbit,
		IsStored:         p.IsStored,
		IsChosen:         p.IsChosen,
		Dates:            p.Dates,
		TestCases:        cases,
		Sources:          sources,
		OrbitDatasetPath: p.OrbitDatasetPath,
		GroundTestPath:   p.GroundTestPath,
	}
	return out, nil
}
