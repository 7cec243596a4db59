package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds everything one invocation needs. It is built once at entry and
// passed down explicitly; nothing in the pipeline reads the environment.
type Config struct {
	Region string `mapstructure:"region"`

	// Age thresholds in days (inclusive: age == threshold counts as unused).
	EC2UnusedDays int `mapstructure:"ec2_unused_days"`
	EBSUnusedDays int `mapstructure:"ebs_unused_days"`

	// Lookback windows in days for activity-metric categories.
	ELBLookbackDays      int `mapstructure:"elb_lookback_days"`
	S3LookbackDays       int `mapstructure:"s3_lookback_days"`
	DynamoDBLookbackDays int `mapstructure:"dynamodb_lookback_days"`
	LambdaLookbackDays   int `mapstructure:"lambda_lookback_days"`

	// Report destination. Empty bucket means local output only.
	ReportBucket string `mapstructure:"report_bucket"`
	OutputDir    string `mapstructure:"output_dir"`

	// Notification topic. The only setting without a default.
	TopicARN string `mapstructure:"topic_arn"`

	// StrictMode fails the invocation when any category listing failed.
	StrictMode bool `mapstructure:"strict_mode"`

	JSONLogs     bool   `mapstructure:"json_logs"`
	OtelEndpoint string `mapstructure:"otel_endpoint"`
}

// Default returns the safe defaults, matching the historical cron setup.
func Default() Config {
	return Config{
		Region:               "us-east-1",
		EC2UnusedDays:        7,
		EBSUnusedDays:        7,
		ELBLookbackDays:      7,
		S3LookbackDays:       30,
		DynamoDBLookbackDays: 30,
		LambdaLookbackDays:   30,
		OutputDir:            "idlewatch-out",
		JSONLogs:             true,
	}
}

// envKeys maps mapstructure keys to the environment variables the scheduler
// sets on the invocation. The EC2/EBS/S3/SNS names predate this tool and are
// kept for drop-in compatibility.
var envKeys = map[string]string{
	"region":                 "AWS_REGION",
	"ec2_unused_days":        "EC2_UNUSED_DAYS",
	"ebs_unused_days":        "EBS_UNUSED_DAYS",
	"elb_lookback_days":      "ELB_LOOKBACK_DAYS",
	"s3_lookback_days":       "S3_LOOKBACK_DAYS",
	"dynamodb_lookback_days": "DYNAMODB_LOOKBACK_DAYS",
	"lambda_lookback_days":   "LAMBDA_LOOKBACK_DAYS",
	"report_bucket":          "S3_BUCKET_NAME",
	"output_dir":             "OUTPUT_DIR",
	"topic_arn":              "SNS_TOPIC_ARN",
	"strict_mode":            "STRICT_MODE",
	"json_logs":              "JSON_LOGS",
	"otel_endpoint":          "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// FromEnv layers environment values over the defaults using viper.
func FromEnv() (Config, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("region", cfg.Region)
	v.SetDefault("ec2_unused_days", cfg.EC2UnusedDays)
	v.SetDefault("ebs_unused_days", cfg.EBSUnusedDays)
	v.SetDefault("elb_lookback_days", cfg.ELBLookbackDays)
	v.SetDefault("s3_lookback_days", cfg.S3LookbackDays)
	v.SetDefault("dynamodb_lookback_days", cfg.DynamoDBLookbackDays)
	v.SetDefault("lambda_lookback_days", cfg.LambdaLookbackDays)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("json_logs", cfg.JSONLogs)

	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations that would misclassify resources.
func (c Config) Validate() error {
	days := map[string]int{
		"ec2_unused_days":        c.EC2UnusedDays,
		"ebs_unused_days":        c.EBSUnusedDays,
		"elb_lookback_days":      c.ELBLookbackDays,
		"s3_lookback_days":       c.S3LookbackDays,
		"dynamodb_lookback_days": c.DynamoDBLookbackDays,
		"lambda_lookback_days":   c.LambdaLookbackDays,
	}
	for name, d := range days {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, d)
		}
	}
	return nil
}
