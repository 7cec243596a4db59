package engine

import (
	"context"
	"fmt"

	"github.com/DrSkyle/idlewatch/pkg/inspector"
	"github.com/DrSkyle/idlewatch/pkg/inspector/aws"
	"github.com/DrSkyle/idlewatch/pkg/notifier"
	"github.com/DrSkyle/idlewatch/pkg/storage"
)

// bootstrap wires the real AWS collaborators for anything not injected via
// options. Tests inject everything, so this is a no-op there.
func (e *Engine) bootstrap(ctx context.Context) error {
	needInspectors := e.registry.Empty()
	needStore := e.store == nil
	needPublisher := e.publisher == nil && e.cfg.TopicARN != ""

	if needStore && e.cfg.ReportBucket == "" {
		e.Logger.Warn("No report bucket configured, writing report locally", "dir", e.cfg.OutputDir)
		e.store = storage.NewLocalStore(e.cfg.OutputDir)
		needStore = false
	}

	if !needInspectors && !needStore && !needPublisher {
		return nil
	}

	client, err := aws.NewClient(ctx, e.cfg.Region)
	if err != nil {
		return fmt.Errorf("failed to create AWS client: %w", err)
	}

	account, err := client.VerifyIdentity(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify identity: %w", err)
	}
	e.Logger.Info("Connected to AWS", "account", account, "region", e.cfg.Region)

	if needInspectors {
		for _, ins := range e.defaultInspectors(client) {
			e.registry.Register(ins)
		}
	}
	if needStore {
		e.store = storage.NewS3Store(client.Config, e.cfg.ReportBucket)
	}
	if needPublisher {
		e.publisher = notifier.NewSNSPublisher(client.Config, e.cfg.TopicARN)
	}

	return nil
}

// defaultInspectors builds the fixed category set against the live session.
// The engine clock replaces each inspector's time source so a pinned clock
// reaches the age predicates too.
func (e *Engine) defaultInspectors(client *aws.Client) []inspector.Inspector {
	cfg := client.Config

	ec2Inspector := aws.NewEC2InstanceInspector(cfg, e.cfg.EC2UnusedDays)
	ec2Inspector.Now = e.clock

	ebsInspector := aws.NewEBSVolumeInspector(cfg, e.cfg.EBSUnusedDays)
	ebsInspector.Now = e.clock

	eipInspector := aws.NewElasticIPInspector(cfg)
	eipInspector.Now = e.clock

	lbInspector := aws.NewLoadBalancerInspector(cfg, e.cfg.ELBLookbackDays)
	lbInspector.Now = e.clock

	rdsInspector := aws.NewRDSInstanceInspector(cfg)
	rdsInspector.Now = e.clock

	s3Inspector := aws.NewS3BucketInspector(cfg, e.cfg.S3LookbackDays, e.cfg.ReportBucket)
	s3Inspector.Now = e.clock

	ddbInspector := aws.NewDynamoDBTableInspector(cfg, e.cfg.DynamoDBLookbackDays)
	ddbInspector.Now = e.clock

	cfInspector := aws.NewCloudFrontInspector(cfg)
	cfInspector.Now = e.clock

	lambdaInspector := aws.NewLambdaFunctionInspector(cfg, e.cfg.LambdaLookbackDays)
	lambdaInspector.Now = e.clock

	return []inspector.Inspector{
		ec2Inspector,
		ebsInspector,
		eipInspector,
		lbInspector,
		rdsInspector,
		s3Inspector,
		ddbInspector,
		cfInspector,
		lambdaInspector,
	}
}
