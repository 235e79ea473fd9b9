package services

import (
	"context"
	"fmt"

	"sortashort_server/config"
	"sortashort_server/logging"
	"sortashort_server/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Services holds every service the controllers depend on.
type Services struct {
	Store   store.Store
	History *HistoryService
	Ratings *RatingService
	Profile *UserProfileService
	Actions *ActionService
	Auth    *AuthService
	Assets  *AssetService
	SEO     *SEOService
}

// New wires the services around already constructed clients.
func New(cfg *config.Config, s store.Store, idp IdentityProvider, objects ObjectStore) *Services {
	assets := NewAssetService(objects, cfg.Storage.Bucket, cfg.Storage.CatalogKey, cfg.Storage.PosterPrefix)
	return &Services{
		Store:   s,
		History: NewHistoryService(s),
		Ratings: NewRatingService(s),
		Profile: NewUserProfileService(s),
		Actions: NewActionService(s),
		Auth:    NewAuthService(idp, cfg.Auth.CognitoClientID, s),
		Assets:  assets,
		SEO:     NewSEOService(cfg.Static.Root, cfg.Static.ShellFile, assets),
	}
}

// NewDynamoDBClient builds the DynamoDB client, honouring a local endpoint override.
func NewDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// LoadAWSConfig resolves credentials and region for cfg.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Initialize builds the AWS clients once per process and wires the services.
func Initialize(ctx context.Context, cfg *config.Config) (*Services, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logging.Info().Str("region", cfg.AWS.Region).Str("table", cfg.Storage.Table).Str("bucket", cfg.Storage.Bucket).Msg("initializing AWS clients")
	s := store.NewDynamoStore(NewDynamoDBClient(awsCfg, cfg.AWS.DynamoEndpoint), cfg.Storage.Table)
	idp := cognitoidentityprovider.NewFromConfig(awsCfg)
	objects := s3.NewFromConfig(awsCfg)

	if cfg.Auth.CognitoClientID == "" {
		logging.Warn().Msg("COGNITO_CLIENT_ID is not set, auth routes will fail")
	}
	return New(cfg, s, idp, objects), nil
}
