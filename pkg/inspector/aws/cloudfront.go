package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
)

// CloudFrontAPI is the read-only CloudFront surface.
type CloudFrontAPI interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
}

// CloudFrontInspector flags disabled distributions. A disabled distribution
// serves nothing but still occupies the account.
type CloudFrontInspector struct {
	Client CloudFrontAPI
	Now    func() time.Time
}

func NewCloudFrontInspector(cfg aws.Config) *CloudFrontInspector {
	return &CloudFrontInspector{
		Client: cloudfront.NewFromConfig(cfg),
		Now:    time.Now,
	}
}

func (s *CloudFrontInspector) Name() string { return "InspectCloudFrontDistributions" }

func (s *CloudFrontInspector) Category() finding.ResourceType { return finding.TypeCloudFrontDist }

func (s *CloudFrontInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := cloudfront.NewListDistributionsPaginator(s.Client, &cloudfront.ListDistributionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list distributions: %w", err)
		}
		if page.DistributionList == nil {
			continue
		}

		for _, dist := range page.DistributionList.Items {
			if dist.Id == nil || dist.Enabled == nil {
				continue
			}
			if *dist.Enabled {
				continue
			}

			found = append(found, finding.Finding{
				Type:       finding.TypeCloudFrontDist,
				ID:         *dist.Id,
				Region:     "global", // CloudFront has no home region
				Reason:     "disabled",
				DetectedAt: now.UTC(),
			})
		}
	}
	return found, nil
}
