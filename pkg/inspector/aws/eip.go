package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ElasticIPInspector flags addresses not associated with anything.
// No age threshold; an unassociated address bills from the moment it idles.
type ElasticIPInspector struct {
	Client EC2API
	Now    func() time.Time
}

func NewElasticIPInspector(cfg aws.Config) *ElasticIPInspector {
	return &ElasticIPInspector{
		Client: ec2.NewFromConfig(cfg),
		Now:    time.Now,
	}
}

func (s *ElasticIPInspector) Name() string { return "InspectElasticIPs" }

func (s *ElasticIPInspector) Category() finding.ResourceType { return finding.TypeElasticIP }

func (s *ElasticIPInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()

	out, err := s.Client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe addresses: %w", err)
	}

	var found []finding.Finding
	for _, addr := range out.Addresses {
		if addr.AssociationId != nil || addr.InstanceId != nil {
			continue
		}
		if addr.PublicIp == nil {
			continue
		}

		region := ""
		if addr.NetworkBorderGroup != nil {
			region = *addr.NetworkBorderGroup
		}

		found = append(found, finding.Finding{
			Type:       finding.TypeElasticIP,
			ID:         *addr.PublicIp,
			Region:     region,
			Reason:     "not associated",
			DetectedAt: now.UTC(),
		})
	}
	return found, nil
}
