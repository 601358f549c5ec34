package internal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var ErrObjectNotFound = errors.New("object not found")

type S3ClientImpl struct {
	client   *s3.Client
	uploader *manager.Uploader
}

func NewS3Client(ctx context.Context, storage StorageConfig) (*S3ClientImpl, error) {
	var loadOpts []func(*config.LoadOptions) error
	if storage.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(storage.Region))
	}
	if storage.AccessKey != "" && storage.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storage.AccessKey, storage.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	var client *s3.Client
	if storage.Endpoint != "" {
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(storage.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(cfg)
	}

	return newS3ClientImpl(client), nil
}

func newS3ClientImpl(client *s3.Client) *S3ClientImpl {
	return &S3ClientImpl{client: client, uploader: manager.NewUploader(client)}
}

func (s *S3ClientImpl) Upload(ctx context.Context, bucket, key string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := s.uploader.Upload(ctx, input)
	return err
}

func (s *S3ClientImpl) Head(ctx context.Context, region, bucket, key string) (*ObjectInfo, error) {
	var optFns []func(*s3.Options)
	if region != "" {
		optFns = append(optFns, func(o *s3.Options) { o.Region = region })
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, optFns...)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, err
	}

	info := &ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
