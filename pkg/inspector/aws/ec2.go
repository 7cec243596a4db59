package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// EC2API is the read-only slice of the EC2 client used here. Mutating
// methods are deliberately absent; an inspector holding this interface is
// incapable of touching the fleet.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
}

// EC2InstanceInspector flags instances stopped for at least UnusedDays.
type EC2InstanceInspector struct {
	Client     EC2API
	UnusedDays int
	Now        func() time.Time
}

func NewEC2InstanceInspector(cfg aws.Config, unusedDays int) *EC2InstanceInspector {
	return &EC2InstanceInspector{
		Client:     ec2.NewFromConfig(cfg),
		UnusedDays: unusedDays,
		Now:        time.Now,
	}
}

func (s *EC2InstanceInspector) Name() string { return "InspectEC2Instances" }

func (s *EC2InstanceInspector) Category() finding.ResourceType { return finding.TypeEC2Instance }

func (s *EC2InstanceInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := ec2.NewDescribeInstancesPaginator(s.Client, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"stopped"}},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if f, ok := classifyStoppedInstance(instance, now, s.UnusedDays); ok {
					found = append(found, f)
				}
			}
		}
	}
	return found, nil
}

// classifyStoppedInstance applies the age predicate to one stopped instance.
func classifyStoppedInstance(instance types.Instance, now time.Time, unusedDays int) (finding.Finding, bool) {
	if instance.InstanceId == nil {
		return finding.Finding{}, false
	}

	since, ok := stoppedSince(instance)
	if !ok {
		return finding.Finding{}, false
	}

	if ageDays(now, since) < unusedDays {
		return finding.Finding{}, false
	}

	region := ""
	if instance.Placement != nil && instance.Placement.AvailabilityZone != nil {
		region = *instance.Placement.AvailabilityZone
	}

	return finding.Finding{
		Type:       finding.TypeEC2Instance,
		ID:         *instance.InstanceId,
		Region:     region,
		Reason:     fmt.Sprintf("stopped ≥%d days", unusedDays),
		DetectedAt: now.UTC(),
	}, true
}

// stoppedSince extracts the stop time from the StateTransitionReason, which
// EC2 renders as e.g. "User initiated (2024-03-09 21:58:31 GMT)". Falls back
// to LaunchTime when the reason carries no timestamp.
func stoppedSince(instance types.Instance) (time.Time, bool) {
	if instance.StateTransitionReason != nil {
		reason := *instance.StateTransitionReason
		if open := strings.LastIndex(reason, "("); open != -1 && strings.HasSuffix(reason, ")") {
			if ts, err := time.Parse("2006-01-02 15:04:05 MST", reason[open+1:len(reason)-1]); err == nil {
				return ts, true
			}
		}
	}
	if instance.LaunchTime != nil {
		return *instance.LaunchTime, true
	}
	return time.Time{}, false
}

// ageDays is the whole number of elapsed days; the boundary is inclusive, so
// exactly N days old counts as N.
func ageDays(now, since time.Time) int {
	if since.After(now) {
		return 0
	}
	return int(now.Sub(since).Hours() / 24)
}
