package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tlmscope/internal/export"
	"tlmscope/internal/series"
	"tlmscope/internal/telemetry"
)

var (
	fetchFlags  planFlags
	fetchOut    string
	fetchPNGDir string
	fetchMirror bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch telemetry and export it",
	Long:  "fetch runs one plot action and writes the result as JSON, CSV or XLSX, optionally rendering PNG charts and mirroring samples to GreptimeDB.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		p, err := a.prepare(ctx, cmd, &fetchFlags)
		if err != nil {
			return err
		}
		resp := a.orch.Get(ctx, p.Request)
		if err := writeResponse(cmd.OutOrStdout(), fetchOut, resp); err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("%s", strings.Join(resp.ErrorMessages, "; "))
		}

		if fetchPNGDir != "" {
			groups := series.Reshape(resp.Tlm, p.Selections)
			if err := writeCharts(fetchPNGDir, p.Request.Project, groups, p.project.TlmSt); err != nil {
				return err
			}
		}
		if fetchMirror {
			if a.cfg.Greptime.Endpoint == "" {
				return fmt.Errorf("--mirror needs greptime.endpoint or GREPTIMEDB_ENDPOINT")
			}
			m, err := export.NewGreptimeMirror(a.cfg.Greptime.Endpoint, a.cfg.Greptime.Database, a.log)
			if err != nil {
				return err
			}
			n, err := m.Mirror(ctx, p.Request.Project, resp.Tlm)
			if err != nil {
				return err
			}
			a.log.Info("telemetry mirrored", "table", export.TableName(p.Request.Project), "rows", n)
		}
		return nil
	},
}

// writeResponse picks the format from the extension of out. An empty out
// prints the JSON envelope to stdout.
func writeResponse(stdout io.Writer, out string, resp telemetry.Response) error {
	if out == "" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if !resp.Success {
		return nil
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		err = export.WriteCSV(f, resp.Tlm)
	case ".xlsx":
		err = export.WriteXLSX(f, resp.Tlm)
	case ".json":
		err = json.NewEncoder(f).Encode(resp)
	default:
		err = fmt.Errorf("unsupported output format %q", filepath.Ext(out))
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func writeCharts(dir, project string, groups []telemetry.PlotGroup, labels map[string]map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, g := range groups {
		if len(g.Series) == 0 {
			continue
		}
		name := filepath.Join(dir, project+"_plot"+strconv.Itoa(g.PlotID)+".png")
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		err = export.RenderPNG(f, g, export.ChartOptions{
			Width:  1024,
			Height: 480,
			Title:  fmt.Sprintf("%s plot %d", project, g.PlotID),
			Labels: labels,
		})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func init() {
	fetchFlags.bind(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "Output file (.json, .csv or .xlsx); stdout JSON when empty")
	fetchCmd.Flags().StringVar(&fetchPNGDir, "png", "", "Directory to render one PNG per plot into")
	fetchCmd.Flags().BoolVar(&fetchMirror, "mirror", false, "Mirror numeric samples to GreptimeDB")
}
