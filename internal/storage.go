package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotObjectStorageURL = errors.New("not an S3 object URL")

const (
	AddressingVirtualHosted = "virtual-hosted"
	AddressingPath          = "path"
)

// ObjectLocation is a bucket/region/key decoded from an S3 URL.
type ObjectLocation struct {
	Bucket     string `json:"bucket"`
	Region     string `json:"region"`
	Key        string `json:"key"`
	Addressing string `json:"addressing"`
}

func (l ObjectLocation) String() string {
	return fmt.Sprintf("s3://%s/%s (%s)", l.Bucket, l.Key, l.Region)
}

// ParseObjectURL decodes
//
//	https://<bucket>.s3.<region>.amazonaws.com/<key>
//	https://<bucket>.s3-<region>.amazonaws.com/<key>
//	https://<bucket>.s3.amazonaws.com/<key>
//	https://s3.<region>.amazonaws.com/<bucket>/<key>
//
// Hosts without a region label resolve to us-east-1.
func ParseObjectURL(rawURL string) (*ObjectLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObjectStorageURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return nil, fmt.Errorf("%w: host %q", ErrNotObjectStorageURL, host)
	}
	labels := strings.Split(strings.TrimSuffix(host, ".amazonaws.com"), ".")

	s3Label := -1
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i] == "s3" || strings.HasPrefix(labels[i], "s3-") {
			s3Label = i
			break
		}
	}
	if s3Label < 0 {
		return nil, fmt.Errorf("%w: host %q", ErrNotObjectStorageURL, host)
	}

	loc := &ObjectLocation{Region: "us-east-1"}
	switch {
	case strings.HasPrefix(labels[s3Label], "s3-"):
		loc.Region = strings.TrimPrefix(labels[s3Label], "s3-")
	case s3Label+1 < len(labels):
		loc.Region = labels[s3Label+1]
	}

	path := strings.TrimPrefix(u.Path, "/")
	if s3Label == 0 {
		loc.Addressing = AddressingPath
		bucket, key, _ := strings.Cut(path, "/")
		loc.Bucket = bucket
		loc.Key = key
	} else {
		loc.Addressing = AddressingVirtualHosted
		loc.Bucket = strings.Join(labels[:s3Label], ".")
		loc.Key = path
	}

	if loc.Bucket == "" || loc.Key == "" {
		return nil, fmt.Errorf("%w: missing bucket or key in %q", ErrNotObjectStorageURL, rawURL)
	}
	return loc, nil
}

// ObjectInspector looks the returned avatar up in the bucket directly,
// bypassing public access, to tell a permissions problem from a missing
// object.
type ObjectInspector struct {
	store ObjectStore
}

func NewObjectInspector(store ObjectStore) *ObjectInspector {
	return &ObjectInspector{store: store}
}

// Inspect never fails the run; problems are recorded on the result.
// expectedSize <= 0 skips the size comparison.
func (i *ObjectInspector) Inspect(ctx context.Context, rawURL string, expectedSize int64) *ObjectInspection {
	inspection := &ObjectInspection{ExpectedSize: expectedSize}

	loc, err := ParseObjectURL(rawURL)
	if err != nil {
		inspection.Error = err.Error()
		return inspection
	}
	inspection.Location = loc
	LogDebug("HeadObject %s", loc)

	info, err := i.store.Head(ctx, loc.Region, loc.Bucket, loc.Key)
	if err != nil {
		inspection.Error = err.Error()
		return inspection
	}

	inspection.Found = true
	inspection.Size = info.Size
	inspection.ContentType = info.ContentType
	inspection.ETag = info.ETag
	if !info.LastModified.IsZero() {
		lastModified := info.LastModified
		inspection.LastModified = &lastModified
	}
	inspection.SizeMatches = expectedSize <= 0 || info.Size == expectedSize
	return inspection
}
