package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3BucketAPI is the read-only S3 surface used here.
type S3BucketAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
}

// CloudTrailAPI answers activity-event lookups.
type CloudTrailAPI interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

// S3BucketInspector flags buckets with no recorded activity events in the
// lookback window. The report destination bucket excludes itself, since the
// daily upload would keep it warm forever.
type S3BucketInspector struct {
	Client        S3BucketAPI
	Trail         CloudTrailAPI
	LookbackDays  int
	ExcludeBucket string
	Now           func() time.Time
}

func NewS3BucketInspector(cfg aws.Config, lookbackDays int, excludeBucket string) *S3BucketInspector {
	return &S3BucketInspector{
		Client:        s3.NewFromConfig(cfg),
		Trail:         cloudtrail.NewFromConfig(cfg),
		LookbackDays:  lookbackDays,
		ExcludeBucket: excludeBucket,
		Now:           time.Now,
	}
}

func (s *S3BucketInspector) Name() string { return "InspectS3Buckets" }

func (s *S3BucketInspector) Category() finding.ResourceType { return finding.TypeS3Bucket }

func (s *S3BucketInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()

	result, err := s.Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var found []finding.Finding
	for _, bucket := range result.Buckets {
		if bucket.Name == nil {
			continue
		}
		name := *bucket.Name
		if name == s.ExcludeBucket {
			continue
		}

		active, err := s.hasActivity(ctx, name, now)
		if err != nil {
			slog.Debug("Skipping bucket, activity lookup failed", "bucket", name, "error", err)
			continue
		}
		if active {
			continue
		}

		found = append(found, finding.Finding{
			Type:       finding.TypeS3Bucket,
			ID:         name,
			Region:     s.bucketRegion(ctx, name),
			Reason:     fmt.Sprintf("no activity events in %d days", s.LookbackDays),
			DetectedAt: now.UTC(),
		})
	}
	return found, nil
}

// hasActivity checks CloudTrail for any event touching the bucket inside the
// window. One event is enough, so a single small page settles it.
func (s *S3BucketInspector) hasActivity(ctx context.Context, bucket string, now time.Time) (bool, error) {
	startTime := now.AddDate(0, 0, -s.LookbackDays)

	out, err := s.Trail.LookupEvents(ctx, &cloudtrail.LookupEventsInput{
		LookupAttributes: []cttypes.LookupAttribute{
			{
				AttributeKey:   cttypes.LookupAttributeKeyResourceName,
				AttributeValue: aws.String(bucket),
			},
		},
		StartTime:  &startTime,
		EndTime:    &now,
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Events) > 0, nil
}

// bucketRegion resolves the bucket's home region. Legacy constraints map to
// their modern names; an empty constraint means us-east-1.
func (s *S3BucketInspector) bucketRegion(ctx context.Context, bucket string) string {
	loc, err := s.Client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return ""
	}
	region := string(loc.LocationConstraint)
	switch region {
	case "":
		return "us-east-1"
	case "EU":
		return "eu-west-1"
	}
	return region
}
