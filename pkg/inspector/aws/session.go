package aws

import (
	"context"
	"fmt"
	"os"

	"github.com/DrSkyle/idlewatch/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Client holds the shared AWS config for one invocation.
type Client struct {
	Config aws.Config
	STS    *sts.Client
}

// NewClient initializes a new AWS client with default config.
func NewClient(ctx context.Context, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// Local endpoint override, used against LocalStack.
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// Tag every API call so the account's CloudTrail can attribute the
	// read volume to this tool.
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("UserAgentTag", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				tag := fmt.Sprintf("%s/%s", version.AppName, version.Current)
				if ua := req.Header.Get("User-Agent"); ua != "" {
					tag = fmt.Sprintf("%s %s", ua, tag)
				}
				req.Header.Set("User-Agent", tag)
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	return &Client{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// VerifyIdentity checks that the credentials are valid and returns the
// caller's account ID.
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return *result.Account, nil
}
