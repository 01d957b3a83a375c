package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"tlmscope/internal/telemetry"
)

// greptimeClient is the subset of the ingester client the mirror uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeMirror copies fetched telemetry into GreptimeDB, one table per
// project in long format: (field tag, value, ts).
type GreptimeMirror struct {
	client    greptimeClient
	batchSize int
	log       *slog.Logger
}

// NewGreptimeMirror connects to the GreptimeDB gRPC endpoint host[:port].
func NewGreptimeMirror(endpoint, database string, log *slog.Logger) (*GreptimeMirror, error) {
	host, port := endpoint, 0
	if i := strings.LastIndex(endpoint, ":"); i > 0 {
		host = endpoint[:i]
		if _, err := fmt.Sscanf(endpoint[i+1:], "%d", &port); err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeMirror{client: client, batchSize: 5000, log: log}, nil
}

// TableName returns the mirror table of a project.
func TableName(project string) string {
	return strings.ToLower(project) + "_tlm"
}

// Mirror writes every numeric sample of tlm. Nulls and strings are
// skipped. It returns the number of rows written.
func (m *GreptimeMirror) Mirror(ctx context.Context, project string, tlm telemetry.Tlm) (int, error) {
	name := TableName(project)
	var (
		tbl     *table.Table
		pending int
		written int
	)
	flush := func() error {
		if tbl == nil || pending == 0 {
			return nil
		}
		if _, err := m.client.Write(ctx, tbl); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written += pending
		tbl, pending = nil, 0
		return nil
	}

	for _, field := range tlm.Fields {
		for i, cell := range tlm.Data[field] {
			v, ok := cell.(float64)
			if !ok || i >= len(tlm.Time) {
				continue
			}
			if tbl == nil {
				var err error
				if tbl, err = newMirrorTable(name); err != nil {
					return written, err
				}
			}
			if err := tbl.AddRow(field, v, tlm.Time[i]); err != nil {
				return written, err
			}
			pending++
			if pending >= m.batchSize {
				if err := flush(); err != nil {
					return written, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	m.log.Info("mirrored telemetry", "table", name, "rows", written)
	return written, nil
}

func newMirrorTable(name string) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("field", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("value", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}
