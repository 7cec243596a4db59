package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// EBSVolumeInspector flags volumes detached for at least UnusedDays.
type EBSVolumeInspector struct {
	Client     EC2API
	UnusedDays int
	Now        func() time.Time
}

func NewEBSVolumeInspector(cfg aws.Config, unusedDays int) *EBSVolumeInspector {
	return &EBSVolumeInspector{
		Client:     ec2.NewFromConfig(cfg),
		UnusedDays: unusedDays,
		Now:        time.Now,
	}
}

func (s *EBSVolumeInspector) Name() string { return "InspectEBSVolumes" }

func (s *EBSVolumeInspector) Category() finding.ResourceType { return finding.TypeEBSVolume }

func (s *EBSVolumeInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := ec2.NewDescribeVolumesPaginator(s.Client, &ec2.DescribeVolumesInput{
		Filters: []types.Filter{
			{Name: aws.String("status"), Values: []string{"available"}},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}

		for _, volume := range page.Volumes {
			if f, ok := classifyDetachedVolume(volume, now, s.UnusedDays); ok {
				found = append(found, f)
			}
		}
	}
	return found, nil
}

// classifyDetachedVolume ages a detached volume from its last attachment
// record when one survives, otherwise from creation time.
func classifyDetachedVolume(volume types.Volume, now time.Time, unusedDays int) (finding.Finding, bool) {
	if volume.VolumeId == nil {
		return finding.Finding{}, false
	}

	var since time.Time
	for _, att := range volume.Attachments {
		if att.State == types.VolumeAttachmentStateDetached && att.AttachTime != nil {
			since = *att.AttachTime
		}
	}
	if since.IsZero() {
		if volume.CreateTime == nil {
			return finding.Finding{}, false
		}
		since = *volume.CreateTime
	}

	if ageDays(now, since) < unusedDays {
		return finding.Finding{}, false
	}

	region := ""
	if volume.AvailabilityZone != nil {
		region = *volume.AvailabilityZone
	}

	return finding.Finding{
		Type:       finding.TypeEBSVolume,
		ID:         *volume.VolumeId,
		Region:     region,
		Reason:     fmt.Sprintf("detached ≥%d days", unusedDays),
		DetectedAt: now.UTC(),
	}, true
}
