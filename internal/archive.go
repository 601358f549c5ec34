package internal

import (
	"bytes"
	"context"
	"fmt"
	"os/user"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// GenerateReportKey returns <prefix>/<profile>/<yyyymm>/<yyyymmdd-hhmm>-<target id>.json.
func GenerateReportKey(prefix, profile string, timestamp time.Time, targetID string) string {
	yearMonth := timestamp.Format("200601")
	timeStr := timestamp.Format("20060102-1504")
	id := unsafeKeyChars.ReplaceAllString(targetID, "_")
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s.json", strings.Trim(prefix, "/"), profile, yearMonth, timeStr, id)
}

type S3ReportArchiver struct {
	store  ObjectStore
	bucket string
	prefix string
}

func NewS3ReportArchiver(store ObjectStore, bucket, prefix string) *S3ReportArchiver {
	if prefix == "" {
		prefix = "reports"
	}
	return &S3ReportArchiver{
		store:  store,
		bucket: bucket,
		prefix: prefix,
	}
}

func (a *S3ReportArchiver) Archive(ctx context.Context, report *RunReport) (string, error) {
	key := GenerateReportKey(a.prefix, report.Profile, report.StartedAt, report.Target.ID)

	reportJSON, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("failed to serialize run report: %w", err)
	}

	if err := a.store.Upload(ctx, a.bucket, key, bytes.NewReader(reportJSON), "application/json"); err != nil {
		return "", fmt.Errorf("failed to upload run report to S3: %w", err)
	}

	return key, nil
}

func getCurrentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
