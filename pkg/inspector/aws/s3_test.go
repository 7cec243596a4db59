package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	buckets   []s3types.Bucket
	locations map[string]s3types.BucketLocationConstraint
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{Buckets: f.buckets}, nil
}

func (f *fakeS3) GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{LocationConstraint: f.locations[*params.Bucket]}, nil
}

// fakeCloudTrail reports activity for a fixed set of resource names.
type fakeCloudTrail struct {
	active map[string]bool
	err    error
}

func (f *fakeCloudTrail) LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	name := *params.LookupAttributes[0].AttributeValue
	out := &cloudtrail.LookupEventsOutput{}
	if f.active[name] {
		out.Events = []cttypes.Event{{EventName: aws.String("GetObject")}}
	}
	return out, nil
}

func bucket(name string) s3types.Bucket {
	return s3types.Bucket{Name: aws.String(name)}
}

func TestS3BucketInspector(t *testing.T) {
	client := &fakeS3{
		buckets: []s3types.Bucket{bucket("hot-data"), bucket("cold-archive")},
		locations: map[string]s3types.BucketLocationConstraint{
			"cold-archive": s3types.BucketLocationConstraint("eu-central-1"),
		},
	}
	trail := &fakeCloudTrail{active: map[string]bool{"hot-data": true}}

	ins := &S3BucketInspector{
		Client:       client,
		Trail:        trail,
		LookbackDays: 30,
		Now:          func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(found))
	}
	if found[0].ID != "cold-archive" {
		t.Errorf("Expected cold-archive flagged, got %s", found[0].ID)
	}
	if found[0].Region != "eu-central-1" {
		t.Errorf("Unexpected region: %q", found[0].Region)
	}
	if found[0].Reason != "no activity events in 30 days" {
		t.Errorf("Unexpected reason: %q", found[0].Reason)
	}
}

func TestS3BucketInspectorExcludesReportBucket(t *testing.T) {
	// The daily upload would keep the report bucket warm forever, so it
	// never judges itself.
	client := &fakeS3{buckets: []s3types.Bucket{bucket("reports")}}
	trail := &fakeCloudTrail{}

	ins := &S3BucketInspector{
		Client:        client,
		Trail:         trail,
		LookbackDays:  30,
		ExcludeBucket: "reports",
		Now:           func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Report bucket should be excluded: %v", found)
	}
}

func TestS3BucketInspectorSkipsOnLookupError(t *testing.T) {
	client := &fakeS3{buckets: []s3types.Bucket{bucket("mystery")}}
	trail := &fakeCloudTrail{err: errors.New("access denied")}

	ins := &S3BucketInspector{
		Client:       client,
		Trail:        trail,
		LookbackDays: 30,
		Now:          func() time.Time { return testNow },
	}

	found, err := ins.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect should not fail on lookup errors: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Bucket with unknown activity should be skipped: %v", found)
	}
}

func TestBucketRegionLegacyConstraints(t *testing.T) {
	client := &fakeS3{locations: map[string]s3types.BucketLocationConstraint{
		"legacy-eu": s3types.BucketLocationConstraint("EU"),
		"virginia":  s3types.BucketLocationConstraint(""),
	}}
	ins := &S3BucketInspector{Client: client}

	ctx := context.Background()
	if got := ins.bucketRegion(ctx, "legacy-eu"); got != "eu-west-1" {
		t.Errorf("EU constraint should map to eu-west-1, got %q", got)
	}
	if got := ins.bucketRegion(ctx, "virginia"); got != "us-east-1" {
		t.Errorf("Empty constraint should map to us-east-1, got %q", got)
	}
}
