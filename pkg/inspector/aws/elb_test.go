package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

type fakeELB struct {
	loadBalancers []elbv2types.LoadBalancer
}

func (f *fakeELB) DescribeLoadBalancers(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
	return &elasticloadbalancingv2.DescribeLoadBalancersOutput{LoadBalancers: f.loadBalancers}, nil
}

func alb(name string) elbv2types.LoadBalancer {
	arn := "arn:aws:elasticloadbalancing:us-east-1:123456789012:loadbalancer/app/" + name + "/50dc6c495c0c9188"
	return elbv2types.LoadBalancer{
		LoadBalancerArn:  aws.String(arn),
		LoadBalancerName: aws.String(name),
		Type:             elbv2types.LoadBalancerTypeEnumApplication,
		State:            &elbv2types.LoadBalancerState{Code: elbv2types.LoadBalancerStateEnumActive},
		AvailabilityZones: []elbv2types.AvailabilityZone{
			{ZoneName: aws.String("us-east-1a")},
		},
	}
}

func TestLoadBalancerInspector(t *testing.T) {
	cw := &fakeCloudWatch{values: map[string][]float64{
		"RequestCount": {5000},
	}}

	busy := alb("busy")
	idle := alb("idle")

	ins := &LoadBalancerInspector{
		Client:       &fakeELB{loadBalancers: []elbv2types.LoadBalancer{busy}},
		Metrics:      &MetricsClient{Client: cw},
		LookbackDays: 7,
		Now:          func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Load balancer with traffic should not be flagged: %v", found)
	}

	cw.values = map[string][]float64{}
	ins.Client = &fakeELB{loadBalancers: []elbv2types.LoadBalancer{idle}}

	found, err = ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "idle" {
		t.Fatalf("Expected idle ALB flagged, got %v", found)
	}
	if found[0].Reason != "no traffic in 7 days" {
		t.Errorf("Unexpected reason: %q", found[0].Reason)
	}
}

func TestLoadBalancerInspectorSkipsNonActive(t *testing.T) {
	provisioning := alb("halfway")
	provisioning.State = &elbv2types.LoadBalancerState{Code: elbv2types.LoadBalancerStateEnumProvisioning}

	ins := &LoadBalancerInspector{
		Client:       &fakeELB{loadBalancers: []elbv2types.LoadBalancer{provisioning}},
		Metrics:      &MetricsClient{Client: &fakeCloudWatch{}},
		LookbackDays: 7,
		Now:          func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Provisioning load balancer should be skipped: %v", found)
	}
}

func TestLoadBalancerInspectorSkipsOnMetricError(t *testing.T) {
	// A metric lookup failure skips the resource, never fails the category.
	cw := &fakeCloudWatch{err: context.DeadlineExceeded}

	ins := &LoadBalancerInspector{
		Client:       &fakeELB{loadBalancers: []elbv2types.LoadBalancer{alb("unknowable")}},
		Metrics:      &MetricsClient{Client: cw},
		LookbackDays: 7,
		Now:          func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect should not fail on metric errors: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Resource with unknown metrics should be skipped: %v", found)
	}
}

func TestLBMetricDimension(t *testing.T) {
	dim, ok := lbMetricDimension("arn:aws:elasticloadbalancing:us-east-1:123456789012:loadbalancer/app/my-lb/50dc6c495c0c9188")
	if !ok || dim != "app/my-lb/50dc6c495c0c9188" {
		t.Errorf("Unexpected dimension: %q (%v)", dim, ok)
	}

	if _, ok := lbMetricDimension("arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/x/y"); ok {
		t.Error("Non-loadbalancer ARN should not yield a dimension")
	}
}
