package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Registry manages the fixed set of category inspectors.
type Registry struct {
	inspectors []Inspector
}

// NewRegistry creates an empty inspector registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an inspector. Registration order is irrelevant; the
// aggregator imposes the category order on output.
func (r *Registry) Register(i Inspector) {
	r.inspectors = append(r.inspectors, i)
}

// Empty reports whether anything has been registered yet.
func (r *Registry) Empty() bool { return len(r.inspectors) == 0 }

// FailedScope records one category whose listing failed.
type FailedScope struct {
	Scope string
	Err   error
}

// Result carries every inspector's output plus the failures that were
// isolated along the way.
type Result struct {
	ByCategory map[finding.ResourceType][]finding.Finding
	Failed     []FailedScope
}

// Partial reports whether any category was skipped due to a listing error.
func (res Result) Partial() bool { return len(res.Failed) > 0 }

// RunAll executes every registered inspector in sequence. A failing category
// is logged and recorded but never aborts the remaining inspectors; that
// isolation is the one real failure contract in this pipeline.
func (r *Registry) RunAll(ctx context.Context, region string) Result {
	res := Result{ByCategory: make(map[finding.ResourceType][]finding.Finding)}

	for _, ins := range r.inspectors {
		found, err := runWithTelemetry(ctx, ins, region)
		if err != nil {
			scope := fmt.Sprintf("%s [%s]", region, ins.Name())
			res.Failed = append(res.Failed, FailedScope{Scope: scope, Err: err})
			continue
		}
		res.ByCategory[ins.Category()] = append(res.ByCategory[ins.Category()], found...)
	}

	return res
}

func runWithTelemetry(ctx context.Context, ins Inspector, region string) ([]finding.Finding, error) {
	tr := otel.Tracer("idlewatch/inspector")
	ctx, span := tr.Start(ctx, ins.Name(), trace.WithAttributes(
		attribute.String("provider", "aws"),
		attribute.String("region", region),
		attribute.String("category", string(ins.Category())),
	))
	defer span.End()

	slog.Debug("Starting inspector", "name", ins.Name())
	found, err := ins.Inspect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			slog.Error("Inspector encountered error",
				"name", ins.Name(), "code", apiErr.ErrorCode(), "error", err)
		} else {
			slog.Error("Inspector encountered error", "name", ins.Name(), "error", err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("findings", len(found)))
	slog.Debug("Inspector completed", "name", ins.Name(), "findings", len(found))
	return found, nil
}
