package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iotsitewise"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
)

// Clients bundles the adapters built from one AWS configuration.
type Clients struct {
	Identity   *Identity
	Fleet      *Fleet
	Capability *Capability
	Objects    *Objects
	Worker     *Worker
}

// LoadConfig resolves AWS credentials and region through the default
// credential chain, optionally pinned to a shared-config profile.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	return awsCfg, nil
}

// New builds every adapter.
//
// Parameters:
//   - awsCfg: Resolved AWS configuration
//   - cfg: Service configuration (bucket, capability namespace, worker)
//
// Returns:
//   - *Clients: Adapters ready for the orchestrator
func New(awsCfg aws.Config, cfg *config.Config) *Clients {
	return &Clients{
		Identity:   NewIdentity(iot.NewFromConfig(awsCfg)),
		Fleet:      NewFleet(greengrassv2.NewFromConfig(awsCfg)),
		Capability: NewCapability(iotsitewise.NewFromConfig(awsCfg), cfg.AWS.CapabilityNamespace),
		Objects:    NewObjects(s3.NewFromConfig(awsCfg), cfg.Provisioning.Bucket),
		Worker:     NewWorker(lambda.NewFromConfig(awsCfg), cfg.Worker.FunctionName),
	}
}
