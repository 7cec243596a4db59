package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/config"
	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/DrSkyle/idlewatch/pkg/inspector"
	"github.com/DrSkyle/idlewatch/pkg/notifier"
	"github.com/DrSkyle/idlewatch/pkg/report"
	"github.com/DrSkyle/idlewatch/pkg/storage"
	"github.com/DrSkyle/idlewatch/pkg/telemetry"
	"github.com/DrSkyle/idlewatch/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPartialResult indicates the run completed but at least one category
// listing failed. Only surfaced as a failure under StrictMode.
var ErrPartialResult = errors.New("run completed with partial results")

// Invocation statuses. There are no intermediate states; a run either
// completes or it doesn't.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// InvocationResult is what one complete pipeline execution reports back to
// the scheduler.
type InvocationResult struct {
	Status        string `json:"status"`
	FindingsCount int    `json:"findings_count"`
	Location      string `json:"storage_location,omitempty"`
}

// Publisher is the notification sink.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// Engine is the invocation entry point: inspectors, aggregation, report,
// notification, in that order, once.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	cfg       config.Config
	registry  *inspector.Registry
	store     storage.BlobStore
	publisher Publisher
	clock     func() time.Time

	shutdownTracing func(context.Context) error
}

// Option is a functional configuration override.
type Option func(*Engine)

// New initializes the Engine. Without explicit wiring options the AWS
// clients are built lazily on the first Run.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: redactSensitiveData,
	})
	e := &Engine{
		Logger:   slog.New(handler),
		Tracer:   otel.Tracer("idlewatch/engine"),
		cfg:      config.Default(),
		registry: inspector.NewRegistry(),
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	slog.SetDefault(e.Logger)

	shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, e.cfg.OtelEndpoint)
	if err != nil {
		e.Logger.Warn("Telemetry init failed", "error", err)
	} else {
		e.shutdownTracing = shutdown
	}

	return e, nil
}

// WithConfig sets the invocation configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithStore overrides the report sink.
func WithStore(s storage.BlobStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithPublisher overrides the notification sink.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithInspectors replaces the default AWS inspector set.
func WithInspectors(inspectors ...inspector.Inspector) Option {
	return func(e *Engine) {
		e.registry = inspector.NewRegistry()
		for _, ins := range inspectors {
			e.registry.Register(ins)
		}
	}
}

// WithClock fixes the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// Run executes the whole pipeline for one trigger event. No retries: the
// scheduler's next run is the recovery mechanism.
func (e *Engine) Run(ctx context.Context, ev Event) (result InvocationResult, err error) {
	// Registered first so it runs last: the panic span and the root span must
	// end before the tracer provider shuts down.
	defer e.flushTracing()

	ctx, span := e.Tracer.Start(ctx, "Engine.Run", trace.WithAttributes(
		attribute.String("event.source", ev.Source),
		attribute.String("event.detail_type", ev.Detail),
	))
	defer span.End()
	defer e.recoverPanic(ctx, &result, &err)

	e.Logger.Info("Starting run",
		"source", ev.Source,
		"detail_type", ev.Detail,
		"triggered_at", ev.Time,
		"region", e.cfg.Region,
		"version", version.Current,
	)

	if err := e.bootstrap(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return InvocationResult{Status: StatusFailure}, err
	}

	// 1+2. Inspect every category, then flatten in canonical order.
	res := e.registry.RunAll(ctx, e.cfg.Region)
	findings := finding.Aggregate(res.ByCategory)

	for _, failed := range res.Failed {
		e.Logger.Warn("Category skipped", "scope", failed.Scope, "error", failed.Err)
	}
	span.SetAttributes(
		attribute.Int("findings", len(findings)),
		attribute.Int("failed_scopes", len(res.Failed)),
	)

	// 3. Persist the report. A rejected upload fails the whole run and
	// suppresses the notification; there is nothing useful to announce.
	rep := report.New(e.clock().UTC(), findings)
	location, err := rep.Write(ctx, e.store)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.Logger.Error("Report upload rejected", "error", err)
		return InvocationResult{Status: StatusFailure, FindingsCount: len(findings)}, err
	}
	e.Logger.Info("Report stored", "location", location, "findings", len(findings))

	// 4. Notify. A publish failure is logged only; the report is already
	// durable, so the invocation still counts as a success.
	if e.publisher != nil {
		msg := notifier.BuildMessage(findings, location)
		if err := e.publisher.Publish(ctx, notifier.Subject, msg); err != nil {
			e.Logger.Error("Notification publish failed", "error", err)
		}
	} else {
		e.Logger.Warn("No notification topic configured, skipping alert")
	}

	result = InvocationResult{
		Status:        StatusSuccess,
		FindingsCount: len(findings),
		Location:      location,
	}

	if res.Partial() && e.cfg.StrictMode {
		e.Logger.Error("Strict mode: failing due to partial results")
		result.Status = StatusFailure
		return result, ErrPartialResult
	}

	return result, nil
}

// flushTracing pushes buffered spans out before the process exits; scheduled
// invocations die young.
func (e *Engine) flushTracing() {
	if e.shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = e.shutdownTracing(ctx)
}

// recoverPanic converts a crash into a failed invocation with a recorded
// span and a log line. The scheduler must see a failure, not an empty result.
func (e *Engine) recoverPanic(ctx context.Context, result *InvocationResult, err *error) {
	if r := recover(); r != nil {
		_, span := e.Tracer.Start(ctx, "CriticalPanic")
		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "critical failure")
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(debug.Stack()))

		result.Status = StatusFailure
		*err = fmt.Errorf("panic: %v", r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"credential": true, "signature": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{Key: a.Key, Value: slog.StringValue("[REDACTED]")}
	}
	return a
}
