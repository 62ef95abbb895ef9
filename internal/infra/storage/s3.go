package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sifan077/DocLink/config"
)

const defaultPresignTTL = 5 * time.Minute

type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 wraps the bucket that holds uploaded documents and rendered pages.
type S3 struct {
	Bucket     string
	presignTTL time.Duration
	cli        objectAPI
	presigner  presignAPI
}

// NewS3 builds an S3 client from static credentials. A custom endpoint makes
// the client usable against S3-compatible stores such as MinIO.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &S3{
		Bucket:     cfg.Bucket,
		presignTTL: ttl,
		cli:        cli,
		presigner:  s3.NewPresignClient(cli),
	}, nil
}

// PresignGet returns a time-limited GET url for key.
func (s *S3) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// GetObject downloads key fully into memory.
func (s *S3) GetObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// CopyFolder copies every object under fromPrefix to the same relative key
// under toPrefix, following list continuation tokens. It returns the number
// of copied objects.
func (s *S3) CopyFolder(ctx context.Context, fromPrefix, toPrefix string) (int, error) {
	var (
		count int
		token *string
	)
	for {
		list, err := s.cli.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(fromPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return count, fmt.Errorf("storage: list %s: %w", fromPrefix, err)
		}

		for _, obj := range list.Contents {
			fromKey := aws.ToString(obj.Key)
			toKey := toPrefix + strings.TrimPrefix(fromKey, fromPrefix)
			if _, err := s.cli.CopyObject(ctx, &s3.CopyObjectInput{
				Bucket:     aws.String(s.Bucket),
				CopySource: aws.String(s.Bucket + "/" + fromKey),
				Key:        aws.String(toKey),
			}); err != nil {
				return count, fmt.Errorf("storage: copy %s: %w", fromKey, err)
			}
			count++
		}

		if aws.ToString(list.NextContinuationToken) == "" {
			return count, nil
		}
		token = list.NextContinuationToken
	}
}
