package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// RDSAPI is the read-only RDS surface.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSInstanceInspector flags database instances sitting in the stopped state.
// Stopped RDS still bills for storage, and AWS restarts it after seven days
// anyway, so stopped is enough of a signal on its own.
type RDSInstanceInspector struct {
	Client RDSAPI
	Now    func() time.Time
}

func NewRDSInstanceInspector(cfg aws.Config) *RDSInstanceInspector {
	return &RDSInstanceInspector{
		Client: rds.NewFromConfig(cfg),
		Now:    time.Now,
	}
}

func (s *RDSInstanceInspector) Name() string { return "InspectRDSInstances" }

func (s *RDSInstanceInspector) Category() finding.ResourceType { return finding.TypeRDSInstance }

func (s *RDSInstanceInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := rds.NewDescribeDBInstancesPaginator(s.Client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe db instances: %w", err)
		}

		for _, db := range page.DBInstances {
			if db.DBInstanceIdentifier == nil || db.DBInstanceStatus == nil {
				continue
			}
			if *db.DBInstanceStatus != "stopped" {
				continue
			}

			region := ""
			if db.AvailabilityZone != nil {
				region = *db.AvailabilityZone
			}

			found = append(found, finding.Finding{
				Type:       finding.TypeRDSInstance,
				ID:         *db.DBInstanceIdentifier,
				Region:     region,
				Reason:     "stopped",
				DetectedAt: now.UTC(),
			})
		}
	}
	return found, nil
}
