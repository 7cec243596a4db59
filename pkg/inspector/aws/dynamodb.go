package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI is the read-only DynamoDB surface.
type DynamoDBAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// DynamoDBTableInspector flags tables with zero consumed read and write
// capacity over the lookback window.
type DynamoDBTableInspector struct {
	Client       DynamoDBAPI
	Metrics      *MetricsClient
	Region       string
	LookbackDays int
	Now          func() time.Time
}

func NewDynamoDBTableInspector(cfg aws.Config, lookbackDays int) *DynamoDBTableInspector {
	return &DynamoDBTableInspector{
		Client:       dynamodb.NewFromConfig(cfg),
		Metrics:      NewMetricsClient(cfg),
		Region:       cfg.Region,
		LookbackDays: lookbackDays,
		Now:          time.Now,
	}
}

func (s *DynamoDBTableInspector) Name() string { return "InspectDynamoDBTables" }

func (s *DynamoDBTableInspector) Category() finding.ResourceType { return finding.TypeDynamoDBTable }

func (s *DynamoDBTableInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	now := s.Now()
	var found []finding.Finding

	paginator := dynamodb.NewListTablesPaginator(s.Client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}

		for _, tableName := range page.TableNames {
			reads, err := s.Metrics.Sum(ctx, "AWS/DynamoDB", "ConsumedReadCapacityUnits", Dim("TableName", tableName), s.LookbackDays, now)
			if err != nil {
				slog.Debug("Skipping table, metric lookup failed", "table", tableName, "error", err)
				continue
			}
			writes, err := s.Metrics.Sum(ctx, "AWS/DynamoDB", "ConsumedWriteCapacityUnits", Dim("TableName", tableName), s.LookbackDays, now)
			if err != nil {
				slog.Debug("Skipping table, metric lookup failed", "table", tableName, "error", err)
				continue
			}
			if reads+writes > 0 {
				continue
			}

			found = append(found, finding.Finding{
				Type:       finding.TypeDynamoDBTable,
				ID:         tableName,
				Region:     s.Region,
				Reason:     fmt.Sprintf("no consumed capacity in %d days", s.LookbackDays),
				DetectedAt: now.UTC(),
			})
		}
	}
	return found, nil
}
