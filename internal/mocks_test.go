package internal

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockObjectStore struct {
	mock.Mock
	uploaded []byte
}

func (m *MockObjectStore) Upload(ctx context.Context, bucket, key string, data io.Reader, contentType string) error {
	if data != nil {
		m.uploaded, _ = io.ReadAll(data)
	}
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Head(ctx context.Context, region, bucket, key string) (*ObjectInfo, error) {
	args := m.Called(ctx, region, bucket, key)
	info, _ := args.Get(0).(*ObjectInfo)
	return info, args.Error(1)
}

type MockReportArchiver struct {
	mock.Mock
}

func (m *MockReportArchiver) Archive(ctx context.Context, report *RunReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}
