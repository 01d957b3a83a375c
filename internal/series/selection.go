package series

import (
	"errors"
	"fmt"

	"tlmscope/internal/telemetry"
)

// ErrNothingSelected is returned when no requested field survives pruning.
var ErrNothingSelected = errors.New("Telemetry not selected")

// PlotFields is a caller's chart layout before source ids are resolved.
type PlotFields struct {
	PlotID int
	Fields []string
}

// BuildSelections resolves field names against the project's field to
// source id mapping. Unknown fields are dropped with a warning, empty plots
// are dropped, and the request sources merge fields per source id in first
// seen order.
func BuildSelections(plots []PlotFields, tlmID map[string]int) ([]telemetry.Selection, []telemetry.Source, []string, error) {
	var (
		selections []telemetry.Selection
		sources    []telemetry.Source
		warnings   []string
	)
	index := make(map[int]int)

	for _, p := range plots {
		sel := telemetry.Selection{PlotID: p.PlotID}
		perSource := make(map[int]int)
		for _, f := range p.Fields {
			id, ok := tlmID[f]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("TLM list: %s deleted because not exist", f))
				continue
			}
			if i, ok := perSource[id]; ok {
				sel.Sources[i].Fields = append(sel.Sources[i].Fields, f)
			} else {
				perSource[id] = len(sel.Sources)
				sel.Sources = append(sel.Sources, telemetry.Source{ID: id, Fields: []string{f}})
			}

			if i, ok := index[id]; ok {
				if !contains(sources[i].Fields, f) {
					sources[i].Fields = append(sources[i].Fields, f)
				}
			} else {
				index[id] = len(sources)
				sources = append(sources, telemetry.Source{ID: id, Fields: []string{f}})
			}
		}
		if len(sel.Sources) > 0 {
			selections = append(selections, sel)
		}
	}
	if len(sources) == 0 {
		return nil, nil, warnings, ErrNothingSelected
	}
	return selections, sources, warnings, nil
}

// PruneTestCases drops test cases the project does not have.
func PruneTestCases(chosen, available []string) ([]string, []string) {
	var kept, warnings []string
	for _, c := range chosen {
		if contains(available, c) {
			kept = append(kept, c)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("Test case: %s deleted because not exist", c))
	}
	return kept, warnings
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
