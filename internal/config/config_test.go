package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlmscope.yaml")
	writeFile(t, path, `
warehouse:
  backend: postgres
  dsn: postgres://localhost/tlm?sslmode=disable
limits:
  max_days: 7
  timeout: 90s
log:
  level: debug
  format: json
cache:
  enabled: true
  ttl: 5m
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Warehouse.Backend != "postgres" || cfg.Warehouse.Dialect != "postgres" {
		t.Errorf("warehouse: %+v", cfg.Warehouse)
	}
	if cfg.Limits.MaxDays != 7 || cfg.Limits.Timeout != 90*time.Second {
		t.Errorf("limits: %+v", cfg.Limits)
	}
	if cfg.Limits.MaxTlmLength != 1_000_000 {
		t.Errorf("default max length not applied: %d", cfg.Limits.MaxTlmLength)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log: %+v", cfg.Log)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache: %+v", cfg.Cache)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Warehouse.Backend != "bigquery" || cfg.Limits.MaxDays != 31 || cfg.Limits.Timeout != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	epoch, err := cfg.Epoch()
	if err != nil || !epoch.Equal(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("epoch %v err %v", epoch, err)
	}
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "warehouse:\n  backend: snowflake\n",
		"negative days":   "limits:\n  max_days: -1\n",
		"unknown key":     "colour: blue\n",
		"bad timeout":     "limits:\n  timeout: soon\n",
		"bad cache ttl":   "cache:\n  ttl: forever\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			writeFile(t, path, body)
			if _, err := Load(path, ""); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("TLMSCOPE_TIMEOUT", "5s")
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptime:4001")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.Timeout != 5*time.Second || cfg.Greptime.Endpoint != "greptime:4001" {
		t.Errorf("env not applied: %+v %+v", cfg.Limits, cfg.Greptime)
	}

	t.Setenv("TLMSCOPE_TIMEOUT", "later")
	if _, err := Load("", ""); err == nil || !strings.Contains(err.Error(), "TLMSCOPE_TIMEOUT") {
		t.Errorf("expected TLMSCOPE_TIMEOUT error, got %v", err)
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SettingsFile), `{
  "common": {"apiPathList": ["C:/api/run.bat"]},
  "project": [
    {"pjName": "DSX0201", "savePath": "out/0201", "orbitDatasetPath": "dsx0201.tlm"},
    {"pjName": "DSX0301", "savePath": "out/0301", "groundTestPath": "ground/0301"}
  ]
}`)
	writeFile(t, filepath.Join(dir, "DSX0201", "tlm_id.json"), `{"MODE": 0, "BAT_V": 12}`)
	writeFile(t, filepath.Join(dir, "DSX0201", "tlm_st.json"), `{"MODE": {"0": "SAFE", "1": "NOMINAL"}}`)

	s, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	p, err := s.Lookup("DSX0201")
	if err != nil || p.OrbitDatasetPath != "dsx0201.tlm" {
		t.Fatalf("Lookup: %+v %v", p, err)
	}
	ps, err := LoadProject(dir, p)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if ps.TlmID["BAT_V"] != 12 || ps.TlmSt["MODE"]["1"] != "NOMINAL" {
		t.Errorf("project settings: %+v", ps)
	}
	if got := ps.Fields(); len(got) != 2 || got[0] != "BAT_V" {
		t.Errorf("fields: %v", got)
	}

	other, _ := s.Lookup("DSX0301")
	writeFile(t, filepath.Join(dir, "DSX0301", "tlm_id.json"), `{"TEMP": 7}`)
	ps, err = LoadProject(dir, other)
	if err != nil || ps.TlmSt != nil {
		t.Errorf("missing tlm_st should be allowed: %+v %v", ps, err)
	}
	if _, err := s.Lookup("DSX9999"); err == nil {
		t.Errorf("expected ErrProjectNotFound")
	}
}

func TestLoadSettings_BadProjectName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SettingsFile), `{"common": {"apiPathList": []}, "project": [{"pjName": "ABC01", "savePath": "x"}]}`)
	if _, err := LoadSettings(dir); err == nil {
		t.Errorf("expected pjName validation error")
	}
}
