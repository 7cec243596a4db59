package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// LambdaAPI is the read-only Lambda surface.
type LambdaAPI interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// LambdaFunctionInspector flags functions with zero invocations over the
// lookback window.
type LambdaFunctionInspector struct {
	Client       LambdaAPI
	Metrics      *MetricsClient
	Region       string
	LookbackDays int
	Now          func() time.Time
}

func NewLambdaFunctionInspector(cfg aws.Config, lookbackDays int) *LambdaFunctionInspector {
	return &LambdaFunctionInspector{
		Client:       lambda.NewFromConfig(cfg),
		Metrics:      NewMetricsClient(cfg),
		Region:       cfg.Region,
		LookbackDays: lookbackDays,
		Now:          time.Now,
	}
}

func (s *LambdaFunctionInspector) Name() string { return "InspectLambdaFunctions" }

func (s *LambdaFunctionInspector) Category() finding.ResourceType { return finding.TypeLambdaFunction }

func (s *LambdaFunctionInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := lambda.NewListFunctionsPaginator(s.Client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}

		for _, fn := range page.Functions {
			if fn.FunctionName == nil {
				continue
			}
			name := *fn.FunctionName

			invocations, err := s.Metrics.Sum(ctx, "AWS/Lambda", "Invocations", Dim("FunctionName", name), s.LookbackDays, now)
			if err != nil {
				slog.Debug("Skipping function, metric lookup failed", "function", name, "error", err)
				continue
			}
			if invocations > 0 {
				continue
			}

			found = append(found, finding.Finding{
				Type:       finding.TypeLambdaFunction,
				ID:         name,
				Region:     s.Region,
				Reason:     fmt.Sprintf("no invocations in %d days", s.LookbackDays),
				DetectedAt: now.UTC(),
			})
		}
	}
	return found, nil
}
