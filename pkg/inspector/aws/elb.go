package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

// ELBAPI is the read-only ELBv2 surface.
type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error)
}

// LoadBalancerInspector flags load balancers with zero traffic over the
// lookback window. ALBs are judged on RequestCount, NLBs on ActiveFlowCount;
// gateway LBs are skipped.
type LoadBalancerInspector struct {
	Client       ELBAPI
	Metrics      *MetricsClient
	LookbackDays int
	Now          func() time.Time
}

func NewLoadBalancerInspector(cfg aws.Config, lookbackDays int) *LoadBalancerInspector {
	return &LoadBalancerInspector{
		Client:       elasticloadbalancingv2.NewFromConfig(cfg),
		Metrics:      NewMetricsClient(cfg),
		LookbackDays: lookbackDays,
		Now:          time.Now,
	}
}

func (s *LoadBalancerInspector) Name() string { return "InspectLoadBalancers" }

func (s *LoadBalancerInspector) Category() finding.ResourceType { return finding.TypeLoadBalancer }

func (s *LoadBalancerInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(s.Client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe load balancers: %w", err)
		}

		for _, lb := range page.LoadBalancers {
			if lb.LoadBalancerArn == nil || lb.LoadBalancerName == nil {
				continue
			}
			if lb.State != nil && lb.State.Code != elbv2types.LoadBalancerStateEnumActive {
				continue
			}

			var namespace, metricName string
			switch lb.Type {
			case elbv2types.LoadBalancerTypeEnumApplication:
				namespace, metricName = "AWS/ApplicationELB", "RequestCount"
			case elbv2types.LoadBalancerTypeEnumNetwork:
				namespace, metricName = "AWS/NetworkELB", "ActiveFlowCount"
			default:
				continue
			}

			dimValue, ok := lbMetricDimension(*lb.LoadBalancerArn)
			if !ok {
				continue
			}

			sum, err := s.Metrics.Sum(ctx, namespace, metricName, Dim("LoadBalancer", dimValue), s.LookbackDays, now)
			if err != nil {
				// Missing metrics mean skip, never crash the category.
				slog.Debug("Skipping load balancer, metric lookup failed", "name", *lb.LoadBalancerName, "error", err)
				continue
			}
			if sum > 0 {
				continue
			}

			region := ""
			if len(lb.AvailabilityZones) > 0 && lb.AvailabilityZones[0].ZoneName != nil {
				region = *lb.AvailabilityZones[0].ZoneName
			}

			found = append(found, finding.Finding{
				Type:       finding.TypeLoadBalancer,
				ID:         *lb.LoadBalancerName,
				Region:     region,
				Reason:     fmt.Sprintf("no traffic in %d days", s.LookbackDays),
				DetectedAt: now.UTC(),
			})
		}
	}
	return found, nil
}

// lbMetricDimension extracts the CloudWatch dimension value
// ("app/my-lb/50dc6c495c0c9188") from a load balancer ARN.
func lbMetricDimension(arn string) (string, bool) {
	_, after, ok := strings.Cut(arn, ":loadbalancer/")
	if !ok || after == "" {
		return "", false
	}
	return after, true
}
