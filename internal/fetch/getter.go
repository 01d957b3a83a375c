// Package fetch dispatches telemetry requests to the orbit warehouse or the
// ground test reader and normalizes the outcome into one response envelope.
package fetch

import (
	"context"
	"log/slog"

	"tlmscope/internal/query"
	"tlmscope/internal/telemetry"
	"tlmscope/internal/warehouse"
)

// Getter loads telemetry for one request.
type Getter interface {
	Get(ctx context.Context, req telemetry.Request) (telemetry.Response, error)
}

// GetterFunc adapts a function to Getter.
type GetterFunc func(ctx context.Context, req telemetry.Request) (telemetry.Response, error)

func (f GetterFunc) Get(ctx context.Context, req telemetry.Request) (telemetry.Response, error) {
	return f(ctx, req)
}

// OrbitReader answers orbit requests with one warehouse query. A nil
// Warehouse means no credentials were configured.
type OrbitReader struct {
	Builder   *query.Builder
	Warehouse warehouse.Warehouse
	Log       *slog.Logger
}

// Get builds the query for req, runs it and projects the requested fields
// onto the shared time axis. Fields the warehouse did not return get no
// entry in the result data.
func (o *OrbitReader) Get(ctx context.Context, req telemetry.Request) (telemetry.Response, error) {
	if o.Warehouse == nil {
		return telemetry.Failure(warehouse.ErrNoCredentials.Error()), nil
	}
	b := o.Builder
	if b == nil {
		b = query.NewBuilder(query.BigQuery{})
	}
	q, err := b.Build(req.OrbitDatasetPath, req)
	if err != nil {
		return telemetry.Response{}, err
	}
	if o.Log != nil {
		o.Log.Debug("orbit query built", "project", req.Project, "sources", len(req.Sources), "bytes", len(q))
	}

	cols, err := warehouse.Fetch(ctx, o.Warehouse, q)
	if err != nil {
		return telemetry.Failure(err.Error()), nil
	}

	tlm := telemetry.EmptyTlm()
	tlm.Time = cols.Time
	for _, f := range req.Fields() {
		if _, dup := tlm.Data[f]; dup {
			continue
		}
		if col, ok := cols.Columns[f]; ok {
			tlm.Fields = append(tlm.Fields, f)
			tlm.Data[f] = col
		}
	}
	return telemetry.Response{Success: true, Tlm: tlm, ErrorMessages: []string{}}, nil
}
