package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchAPI is the read-only metric surface the inspectors consume.
type CloudWatchAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// MetricsClient answers "how much activity did this resource see over the
// lookback window" questions.
type MetricsClient struct {
	Client CloudWatchAPI
}

func NewMetricsClient(cfg aws.Config) *MetricsClient {
	return &MetricsClient{Client: cloudwatch.NewFromConfig(cfg)}
}

// Sum returns the total of a metric over the trailing lookback window.
// Absent datapoints count as zero; the lookup distinguishes "no activity"
// from "metric query failed" via the error.
func (c *MetricsClient) Sum(ctx context.Context, namespace, metricName string, dims []cwtypes.Dimension, lookbackDays int, now time.Time) (float64, error) {
	endTime := now
	startTime := endTime.AddDate(0, 0, -lookbackDays)

	out, err := c.Client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime: &startTime,
		EndTime:   &endTime,
		MetricDataQueries: []cwtypes.MetricDataQuery{
			{
				Id: aws.String("m_sum"),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String(namespace),
						MetricName: aws.String(metricName),
						Dimensions: dims,
					},
					Period: aws.Int32(86400), // Daily granularity
					Stat:   aws.String("Sum"),
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get metric data: %w", err)
	}

	total := 0.0
	for _, res := range out.MetricDataResults {
		for _, v := range res.Values {
			total += v
		}
	}
	return total, nil
}

// Dim builds a single-dimension slice, the common case here.
func Dim(name, value string) []cwtypes.Dimension {
	return []cwtypes.Dimension{{Name: aws.String(name), Value: aws.String(value)}}
}
