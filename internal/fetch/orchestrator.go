package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tlmscope/internal/logging"
	"tlmscope/internal/observability"
	"tlmscope/internal/query"
	"tlmscope/internal/telemetry"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxLength = 1_000_000
)

// TimeoutMessage is reported when a fetch does not finish in time.
const TimeoutMessage = "Timeout Error, please reduce amount of data or wait for the data to finish synchronizing"

// UnknownError is reported when a failure carries no message.
const UnknownError = "Unknown Error"

// Orchestrator races a fetch against a timeout and validates the result
// before it reaches the plotting layer.
type Orchestrator struct {
	Orbit  Getter
	Ground Getter

	Timeout   time.Duration
	MaxLength int
	MaxDays   int

	Cache   *SessionCache
	Metrics *observability.Collector
	Log     *slog.Logger
}

type outcome struct {
	resp telemetry.Response
	err  error
}

// Get never returns a Go error: every failure is folded into the response.
func (o *Orchestrator) Get(ctx context.Context, req telemetry.Request) telemetry.Response {
	mode := "ground"
	if req.IsOrbit {
		mode = "orbit"
	}
	log := o.logger(ctx).With("component", "fetch", "project", req.Project, "mode", mode)

	ctx, span := otel.Tracer("tlmscope/fetch").Start(ctx, "fetch.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("project", req.Project),
		attribute.String("mode", mode),
		attribute.Int("sources", len(req.Sources)),
	)

	// Ground test directories are not bound by the span limit.
	maxDays := 0
	if req.IsOrbit {
		maxDays = o.MaxDays
		if maxDays <= 0 {
			maxDays = query.DefaultMaxDays
		}
	}
	if err := query.CheckWindow(req.Dates, maxDays); err != nil {
		log.Warn("request rejected", "error", err)
		span.SetStatus(codes.Error, err.Error())
		o.Metrics.ObserveFetch(mode, "rejected", 0, 0)
		return telemetry.Failure(err.Error())
	}

	if o.Cache != nil && refresh(ctx) {
		if err := o.Cache.Forget(req); err != nil {
			log.Warn("session cache forget failed", "error", err)
		}
	} else if o.Cache != nil {
		if resp, ok, err := o.Cache.Get(req); err != nil {
			log.Warn("session cache read failed", "error", err)
		} else if ok {
			log.Debug("served from session cache", "rows", len(resp.Tlm.Time))
			o.Metrics.CacheHit()
			return resp
		}
	}

	getter := o.Ground
	if req.IsOrbit {
		getter = o.Orbit
	}
	if getter == nil {
		return telemetry.Failure(fmt.Sprintf("no %s reader configured", mode))
	}

	start := time.Now()
	resp, label := o.race(ctx, getter, req)
	resp = o.check(resp)
	resp.ErrorMessages = unique(resp.ErrorMessages)
	if !resp.Success && label == "success" {
		label = "failure"
	}
	elapsed := time.Since(start)
	o.Metrics.ObserveFetch(mode, label, elapsed, len(resp.Tlm.Time))

	if !resp.Success {
		span.SetStatus(codes.Error, label)
		log.Warn("fetch failed", "outcome", label, "errors", resp.ErrorMessages, "elapsed", elapsed)
		return resp
	}
	span.SetAttributes(attribute.Int("rows", len(resp.Tlm.Time)))
	log.Info("fetch complete", "rows", len(resp.Tlm.Time), "fields", len(resp.Tlm.Fields), "elapsed", elapsed)

	if o.Cache != nil {
		if err := o.Cache.Put(req, resp); err != nil {
			log.Warn("session cache write failed", "error", err)
		}
	}
	return resp
}

// race runs getter in its own goroutine. When the timeout wins the
// goroutine is left to finish and its result is dropped.
func (o *Orchestrator) race(ctx context.Context, getter Getter, req telemetry.Request) (telemetry.Response, string) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%v", r)}
			}
		}()
		resp, err := getter.Get(ctx, req)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return telemetry.Failure(TimeoutMessage), "timeout"
			}
			msg := out.err.Error()
			if msg == "" {
				msg = UnknownError
			}
			return telemetry.Failure(msg), "error"
		}
		return out.resp, "success"
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return telemetry.Failure(TimeoutMessage), "timeout"
		}
		return telemetry.Failure(ctx.Err().Error()), "canceled"
	}
}

// check applies the length and emptiness guards to a completed fetch.
func (o *Orchestrator) check(resp telemetry.Response) telemetry.Response {
	if resp.Tlm.Data == nil {
		resp.Tlm = telemetry.EmptyTlm()
	}
	maxLen := o.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if len(resp.Tlm.Time) > maxLen {
		return telemetry.Failure(fmt.Sprintf("Telemetry Length too long more than %d", maxLen))
	}
	if !resp.Success {
		if len(resp.ErrorMessages) == 0 {
			resp.ErrorMessages = []string{UnknownError}
		}
		return resp
	}
	if len(resp.Tlm.Time) == 0 {
		return telemetry.Failure(append(resp.ErrorMessages, "Empty")...)
	}
	if resp.ErrorMessages == nil {
		resp.ErrorMessages = []string{}
	}
	return resp
}

// logger prefers a request-scoped logger carried by ctx.
func (o *Orchestrator) logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, o.Log)
}

func unique(msgs []string) []string {
	out := make([]string, 0, len(msgs))
	seen := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
