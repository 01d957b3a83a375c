package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the project list inside the settings directory.
const SettingsFile = "pj-settings.json"

var ErrProjectNotFound = errors.New("project not found")

// Project is one satellite project entry.
type Project struct {
	PjName           string `yaml:"pjName" json:"pjName"`
	SavePath         string `yaml:"savePath" json:"savePath"`
	OrbitDatasetPath string `yaml:"orbitDatasetPath,omitempty" json:"orbitDatasetPath,omitempty"`
	GroundTestPath   string `yaml:"groundTestPath,omitempty" json:"groundTestPath,omitempty"`
}

type Common struct {
	APIPathList []string `yaml:"apiPathList" json:"apiPathList"`
}

// Settings mirrors pj-settings.json.
type Settings struct {
	Common  Common    `yaml:"common" json:"common"`
	Project []Project `yaml:"project" json:"project"`
}

// ProjectSettings is the per-project field mapping. TlmID maps a field
// name to its source id; TlmSt maps a field to value labels for chart
// ticks.
type ProjectSettings struct {
	Project
	TlmID map[string]int               `json:"tlmId"`
	TlmSt map[string]map[string]string `json:"tlmSt,omitempty"`
}

// Fields lists the project's known field names, sorted.
func (p ProjectSettings) Fields() []string {
	out := make([]string, 0, len(p.TlmID))
	for f := range p.TlmID {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// LoadSettings reads and validates <dir>/pj-settings.json.
func LoadSettings(dir string) (*Settings, error) {
	var s Settings
	if err := decodeValidated(filepath.Join(dir, SettingsFile), "#Settings", &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

// Lookup returns the project named pjName.
func (s *Settings) Lookup(pjName string) (Project, error) {
	for _, p := range s.Project {
		if p.PjName == pjName {
			return p, nil
		}
	}
	return Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, pjName)
}

// LoadProject reads the mapping files of p from <dir>/<pjName>/. A missing
// tlm_st.json is not an error.
func LoadProject(dir string, p Project) (ProjectSettings, error) {
	ps := ProjectSettings{Project: p}
	base := filepath.Join(dir, p.PjName)
	if err := decodeValidated(filepath.Join(base, "tlm_id.json"), "#TlmID", &ps.TlmID, true); err != nil {
		return ps, err
	}
	if err := decodeValidated(filepath.Join(base, "tlm_st.json"), "#TlmSt", &ps.TlmSt, false); err != nil {
		return ps, err
	}
	return ps, nil
}

func decodeValidated(path, definition string, out any, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := Validate(path, data, "", definition); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
