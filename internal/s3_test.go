package internal

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBucket = "probe-reports"

// newFakeS3 starts an in-memory S3 server with one bucket.
func newFakeS3(t *testing.T) *S3ClientImpl {
	t.Helper()
	backend := s3mem.New()
	require.NoError(t, backend.CreateBucket(fakeBucket))

	ts := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(ts.Close)

	client := s3.New(s3.Options{
		Region:                     "ap-southeast-2",
		BaseEndpoint:               aws.String(ts.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("AK", "SK", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return newS3ClientImpl(client)
}

func TestS3Client_UploadAndHead(t *testing.T) {
	store := newFakeS3(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte{0xFF}, 825)

	require.NoError(t, store.Upload(ctx, fakeBucket, "users/u1/avatar.jpg", bytes.NewReader(data), "image/jpeg"))

	info, err := store.Head(ctx, "", fakeBucket, "users/u1/avatar.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(825), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)
	assert.NotEmpty(t, info.ETag)
}

func TestS3Client_HeadRegionOverride(t *testing.T) {
	store := newFakeS3(t)
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, fakeBucket, "k.json", strings.NewReader("{}"), "application/json"))

	info, err := store.Head(ctx, "us-east-1", fakeBucket, "k.json")

	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size)
}

func TestS3Client_HeadNotFound(t *testing.T) {
	store := newFakeS3(t)

	_, err := store.Head(context.Background(), "", fakeBucket, "users/missing/avatar.jpg")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
	assert.Contains(t, err.Error(), "s3://probe-reports/users/missing/avatar.jpg")
}

func TestS3Client_UploadMissingBucket(t *testing.T) {
	store := newFakeS3(t)

	err := store.Upload(context.Background(), "no-such-bucket", "k", strings.NewReader("x"), "")

	assert.Error(t, err)
}

func TestNewS3Client_CustomEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), StorageConfig{
		Region:    "ap-southeast-2",
		Endpoint:  "http://localhost:9000",
		AccessKey: "AK",
		SecretKey: "SK",
	})

	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.uploader)
}

func TestS3Client_InspectorRoundTrip(t *testing.T) {
	store := newFakeS3(t)
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, fakeBucket, "users/u1/avatar.jpg", bytes.NewReader(make([]byte, 300)), "image/jpeg"))

	inspection := NewObjectInspector(store).Inspect(ctx,
		"https://"+fakeBucket+".s3.ap-southeast-2.amazonaws.com/users/u1/avatar.jpg", 300)

	assert.True(t, inspection.Found)
	assert.True(t, inspection.SizeMatches)
	assert.NotEmpty(t, inspection.ETag)
	assert.NotNil(t, inspection.LastModified)
}
