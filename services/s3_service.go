package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"sortashort_server/logging"
	"sortashort_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ObjectStore is the subset of the S3 client used to read posters and the catalog.
type ObjectStore interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AssetService reads posters and the movie catalog from the bucket.
type AssetService struct {
	Objects      ObjectStore
	Bucket       string
	CatalogKey   string
	PosterPrefix string
	breaker      *gobreaker.CircuitBreaker[any]
}

func NewAssetService(objects ObjectStore, bucket, catalogKey, posterPrefix string) *AssetService {
	return &AssetService{
		Objects:      objects,
		Bucket:       bucket,
		CatalogKey:   catalogKey,
		PosterPrefix: posterPrefix,
		breaker:      newBreaker("s3"),
	}
}

// Poster is an open poster object. The caller closes Body.
type Poster struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Poster opens posters/<key>. A missing object is a NotFoundError.
func (as *AssetService) Poster(ctx context.Context, key string) (*Poster, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, &NotFoundError{Message: "poster not found"}
	}
	objectKey := as.PosterPrefix + key

	out, err := execute(as.breaker, func() (*s3.GetObjectOutput, error) {
		out, err := as.Objects.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(as.Bucket),
			Key:    aws.String(objectKey),
		})
		return out, objectError(objectKey, err)
	})
	if err != nil {
		return nil, err
	}

	p := &Poster{Body: out.Body, ContentType: aws.ToString(out.ContentType)}
	if out.ContentLength != nil {
		p.ContentLength = *out.ContentLength
	}
	if p.ContentType == "" || p.ContentType == "binary/octet-stream" || p.ContentType == "application/octet-stream" {
		p.ContentType = ContentTypeFor(key)
	}
	return p, nil
}

// Catalog fetches and decodes the catalog document on every call. Any failure
// is logged and yields an empty catalog so pages still render.
func (as *AssetService) Catalog(ctx context.Context) map[string]models.CatalogEntry {
	catalog, err := execute(as.breaker, func() (map[string]models.CatalogEntry, error) {
		out, err := as.Objects.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(as.Bucket),
			Key:    aws.String(as.CatalogKey),
		})
		if err != nil {
			return nil, objectError(as.CatalogKey, err)
		}
		defer out.Body.Close()

		catalog := map[string]models.CatalogEntry{}
		if err := json.NewDecoder(out.Body).DecodeContext(ctx, &catalog); err != nil {
			return nil, fmt.Errorf("failed to decode catalog %s: %w", as.CatalogKey, err)
		}
		return catalog, nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", as.CatalogKey).Msg("catalog unavailable, using defaults")
		return map[string]models.CatalogEntry{}
	}
	return catalog
}

func objectError(key string, err error) error {
	if err == nil {
		return nil
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return &NotFoundError{Message: "object not found: " + key}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
		return &NotFoundError{Message: "object not found: " + key}
	}
	return &UpstreamError{Message: fmt.Sprintf("failed to read object %s: %v", key, err), Cause: err}
}

// ContentTypeFor infers a content type from the file extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
