package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportKey(t *testing.T) {
	ts := time.Date(2025, 7, 12, 9, 5, 0, 0, time.UTC)

	assert.Equal(t, "reports/production/202507/20250712-0905-164CBA5A-DBA6.json",
		GenerateReportKey("reports", "production", ts, "164CBA5A-DBA6"))
	assert.Equal(t, "audit/local/202507/20250712-0905-a_b.json",
		GenerateReportKey("/audit/", "local", ts, "a/b"))
	assert.Equal(t, "reports/local/202507/20250712-0905-unknown.json",
		GenerateReportKey("reports", "local", ts, ""))
}

func sampleReport() *RunReport {
	return &RunReport{
		Profile:   "production",
		BaseURL:   "https://api.hey-watch.me/avatar",
		Target:    Target{Kind: TargetUsers, ID: "u1"},
		StartedAt: time.Date(2025, 7, 12, 9, 5, 0, 0, time.UTC),
		Health:    &HealthResult{Healthy: true, StatusCode: 200},
	}
}

func TestS3ReportArchiver_Archive(t *testing.T) {
	store := new(MockObjectStore)
	store.On("Upload", mock.Anything, "probe-reports", "reports/production/202507/20250712-0905-u1.json", mock.Anything, "application/json").
		Return(nil)

	key, err := NewS3ReportArchiver(store, "probe-reports", "").Archive(context.Background(), sampleReport())

	require.NoError(t, err)
	assert.Equal(t, "reports/production/202507/20250712-0905-u1.json", key)
	store.AssertExpectations(t)

	restored, err := RunReportFromJSON(store.uploaded)
	require.NoError(t, err)
	assert.Equal(t, "production", restored.Profile)
	assert.True(t, restored.Health.Healthy)
}

func TestS3ReportArchiver_UploadError(t *testing.T) {
	store := new(MockObjectStore)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("AccessDenied"))

	key, err := NewS3ReportArchiver(store, "probe-reports", "reports").Archive(context.Background(), sampleReport())

	assert.Empty(t, key)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload run report to S3")
}

func TestS3ReportArchiver_WithFakeS3(t *testing.T) {
	store := newFakeS3(t)
	archiver := NewS3ReportArchiver(store, fakeBucket, "reports")

	key, err := archiver.Archive(context.Background(), sampleReport())
	require.NoError(t, err)

	info, err := store.Head(context.Background(), "", fakeBucket, key)
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Greater(t, info.Size, int64(0))
}
