// s3.go — реализация Store поверх S3-совместимого API (Cloudflare R2).
// R2 говорит на S3 API: aws-sdk-go-v2 с кастомным BaseEndpoint и
// статическими credentials.
package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store — объектное хранилище поверх S3 API.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// S3Config — параметры подключения к S3-совместимому хранилищу.
type S3Config struct {
	// Endpoint — базовый URL S3 API (для R2: https://<account>.r2.cloudflarestorage.com)
	Endpoint string
	// Region — регион ("auto" для R2)
	Region string
	// AccessKey, SecretKey — статические credentials
	AccessKey string
	SecretKey string
	// Bucket — имя бакета
	Bucket string
}

// NewS3Store создаёт хранилище поверх S3-совместимого endpoint.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("конфигурация S3 клиента: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// R2 не поддерживает virtual-hosted style для кастомных endpoint
		o.UsePathStyle = true
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With(slog.String("component", "object_s3")),
	}, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (*Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("HEAD %s: %w", key, err)
	}

	return &Info{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		Metadata:    out.Metadata,
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, *Info, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("GET %s: %w", key, err)
	}

	info := &Info{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		Metadata:    out.Metadata,
	}
	return out.Body, info, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(opts.ContentType),
		Metadata:    opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("PUT %s: %w", key, err)
	}

	s.logger.Debug("Объект записан", slog.String("key", key))
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	// S3 DeleteObject идемпотентна: удаление отсутствующего ключа — успех
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Info, error) {
	var result []Info

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("LIST %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			result = append(result, Info{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return result, nil
}

// Ping проверяет доступность бакета (для readiness probe).
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("HEAD bucket %s: %w", s.bucket, err)
	}
	return nil
}

// isNotFound распознаёт ответы 404 S3 API: NoSuchKey у GetObject,
// NotFound у HeadObject (у HEAD нет тела, SDK отдаёт другой тип).
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

var _ Store = (*S3Store)(nil)
