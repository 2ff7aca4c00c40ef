package clients

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spacesedan/aspectflow/config"
)

var (
	awsCfg  aws.Config
	awsErr  error
	awsOnce sync.Once
)

// GetAWSConfig loads the shared AWS config once for the configured region.
func GetAWSConfig(settings config.StoreSettings) (aws.Config, error) {
	awsOnce.Do(func() {
		slog.Info("[AWSClient] Initializing AWS Config...", slog.String("region", settings.AWSRegion))
		awsCfg, awsErr = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(settings.AWSRegion))
		if awsErr != nil {
			awsErr = fmt.Errorf("[AWSClient] Failed to load AWS config: %w", awsErr)
			return
		}
		slog.Info("[AWSClient] AWS Config Initialized")
	})
	return awsCfg, awsErr
}

// GetDynamoDBClient builds a client, pointed at AWSEndpoint when set
// (DynamoDB Local in development).
func GetDynamoDBClient(settings config.StoreSettings) (*dynamodb.Client, error) {
	cfg, err := GetAWSConfig(settings)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if settings.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(settings.AWSEndpoint)
		}
	}), nil
}
