package finding

import "time"

// ResourceType identifies one inspected resource category.
type ResourceType string

const (
	TypeEC2Instance    ResourceType = "EC2 Instance"
	TypeEBSVolume      ResourceType = "EBS Volume"
	TypeElasticIP      ResourceType = "Elastic IP"
	TypeLoadBalancer   ResourceType = "Load Balancer"
	TypeRDSInstance    ResourceType = "RDS Instance"
	TypeS3Bucket       ResourceType = "S3 Bucket"
	TypeDynamoDBTable  ResourceType = "DynamoDB Table"
	TypeCloudFrontDist ResourceType = "CloudFront Distribution"
	TypeLambdaFunction ResourceType = "Lambda Function"
)

// CategoryOrder is the canonical aggregation order. Reports are diffed across
// daily runs, so this order must stay stable.
var CategoryOrder = []ResourceType{
	TypeEC2Instance,
	TypeEBSVolume,
	TypeElasticIP,
	TypeLoadBalancer,
	TypeRDSInstance,
	TypeS3Bucket,
	TypeDynamoDBTable,
	TypeCloudFrontDist,
	TypeLambdaFunction,
}

// Finding is one detected unused resource. Immutable once created; duplicates
// across runs are expected (history lives in the dated report files).
type Finding struct {
	Type       ResourceType
	ID         string
	Region     string
	Reason     string
	DetectedAt time.Time
}

// Aggregate flattens per-category results into a single slice following
// CategoryOrder. Within a category the inspector's emission order is kept.
// No dedup, no filtering; inspectors already decided what counts.
func Aggregate(byCategory map[ResourceType][]Finding) []Finding {
	var out []Finding
	for _, t := range CategoryOrder {
		out = append(out, byCategory[t]...)
	}
	return out
}
