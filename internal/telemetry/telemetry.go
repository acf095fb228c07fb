// Package telemetry defines the logging, metrics, and tracing seams used
// throughout the coordinator. Every long-lived loop (chat adapter poll,
// task-manager worker, agent graph, gateway) logs and instruments through
// these interfaces rather than calling fmt/log directly, so production code
// can be backed by goa.design/clue/log and OpenTelemetry while tests use the
// no-op implementations.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured, leveled log messages. keyvals are alternating
	// key/value pairs, mirroring the convention used throughout the chat
	// adapter, task manager, and agent graph.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges for the dispatch pipeline
	// (tasks received/completed/failed, rate-limit hits, gateway latency).
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer creates spans for node transitions and gateway calls.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	}

	// Span is a single unit of work within a trace.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error)
	}
)
