package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3Driver stores objects in an S3-compatible bucket. A custom Endpoint with
// path-style addressing supports MinIO and other compatible stores.
type S3Driver struct {
	cfg     S3Config
	s3      *s3.Client
	presign *s3.PresignClient
}

func NewS3Driver(ctx context.Context, cfg S3Config) (*S3Driver, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Driver{
		cfg:     cfg,
		s3:      s3Client,
		presign: s3.NewPresignClient(s3Client),
	}, nil
}

func (d *S3Driver) Upload(ctx context.Context, filePath string, data []byte) error {
	_, err := d.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.cfg.Bucket),
		Key:         aws.String(filePath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(filePath)),
	})
	if err != nil {
		return &Error{Op: "upload", Path: filePath, Kind: ErrIO, Err: err}
	}
	return nil
}

func (d *S3Driver) Read(ctx context.Context, filePath string) ([]byte, error) {
	out, err := d.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(filePath),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &Error{Op: "read", Path: filePath, Kind: ErrNotFound}
		}
		return nil, &Error{Op: "read", Path: filePath, Kind: ErrIO, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &Error{Op: "read", Path: filePath, Kind: ErrIO, Err: err}
	}
	return data, nil
}

func (d *S3Driver) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := d.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(filePath),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &Error{Op: "exists", Path: filePath, Kind: ErrIO, Err: err}
	}
	return true, nil
}

func (d *S3Driver) Delete(ctx context.Context, filePath string) error {
	// S3 DeleteObject succeeds for absent keys, which gives idempotency for free.
	_, err := d.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(filePath),
	})
	if err != nil {
		return &Error{Op: "delete", Path: filePath, Kind: ErrIO, Err: err}
	}
	return nil
}

func (d *S3Driver) GetURL(filePath string) string {
	if d.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(d.cfg.Endpoint, "/"), d.cfg.Bucket, filePath)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.cfg.Bucket, d.cfg.Region, filePath)
}

func (d *S3Driver) GetSignedURL(ctx context.Context, filePath string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		return "", &Error{Op: "signed_url", Path: filePath, Kind: ErrInvalidExpiry}
	}
	presigned, err := d.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(filePath),
	}, func(po *s3.PresignOptions) {
		po.Expires = expiresIn
	})
	if err != nil {
		return "", &Error{Op: "signed_url", Path: filePath, Kind: ErrIO, Err: err}
	}
	return presigned.URL, nil
}

// Client exposes the underlying S3 client for callers that need raw access.
func (d *S3Driver) Client() *s3.Client {
	return d.s3
}

func (d *S3Driver) Name() string {
	return DriverS3
}

func (d *S3Driver) Config() map[string]string {
	return map[string]string{
		"driver":   DriverS3,
		"region":   d.cfg.Region,
		"bucket":   d.cfg.Bucket,
		"endpoint": d.cfg.Endpoint,
	}
}

var _ Driver = (*S3Driver)(nil)
