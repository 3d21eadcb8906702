package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	appconfig "github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
)

// secretsManagerAPI is the slice of the Secrets Manager client we use.
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWS reads the record from an AWS Secrets Manager secret whose value is a
// JSON object with client_id, client_secret and redirect_uri keys.
type AWS struct {
	client   secretsManagerAPI
	secretID string
}

func NewAWS(ctx context.Context, cfg appconfig.OAuthConfig) (*AWS, error) {
	if cfg.SecretID == "" {
		return nil, fmt.Errorf("oauth.secret_id is required for the awssm source")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	// Localstack-style override for integration setups.
	if endpoint := os.Getenv("CLIPSMITH_AWS_ENDPOINT"); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return &AWS{
		client:   secretsmanager.NewFromConfig(awsCfg),
		secretID: cfg.SecretID,
	}, nil
}

func (*AWS) Name() string { return "awssm" }

func (a *AWS) Load(ctx context.Context) (driveauth.Record, error) {
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretID),
	})
	if err != nil {
		return driveauth.Record{}, fmt.Errorf("get secret %s: %w", a.secretID, err)
	}
	if out.SecretString == nil {
		return driveauth.Record{}, fmt.Errorf("secret %s has no string value", a.secretID)
	}

	var rec driveauth.Record
	if err := json.Unmarshal([]byte(*out.SecretString), &rec); err != nil {
		return driveauth.Record{}, fmt.Errorf("parse secret %s JSON: %w", a.secretID, err)
	}
	return rec, nil
}
