package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const bannerWidth = 60

// Printer renders probe steps as human-readable text.
type Printer struct {
	w           io.Writer
	preview     int
	showHeaders bool
}

func NewPrinter(w io.Writer, preview int, showHeaders bool) *Printer {
	if w == nil {
		w = io.Discard
	}
	return &Printer{w: w, preview: preview, showHeaders: showHeaders}
}

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) Banner(title, baseURL string) {
	rule := strings.Repeat("=", bannerWidth)
	p.printf("%s\n%s\n", rule, title)
	if baseURL != "" {
		p.printf("Endpoint: %s\n", baseURL)
	}
	p.printf("%s\n", rule)
}

func (p *Printer) Footer() {
	rule := strings.Repeat("=", bannerWidth)
	p.printf("\n%s\nTest completed\n%s\n", rule, rule)
}

func (p *Printer) Health(h *HealthResult) {
	p.printf("Testing health check...\n")
	if h.Failure == FailureConnectivity {
		p.printf("  [fail] Connection error: %s\n", h.Error)
		return
	}
	p.printf("  Status: %d\n", h.StatusCode)
	if h.Healthy {
		p.printf("  [ok] API is running\n")
		if body := prettyJSON(h.Body); body != "" {
			p.printf("  Response: %s\n", indent(body, "  "))
		}
		return
	}
	p.printf("  [fail] Unexpected status: %d\n", h.StatusCode)
	if h.Body != "" {
		p.printf("  Response: %s\n", Preview(h.Body, p.preview))
	}
}

func (p *Printer) HealthHalted(baseURL, hint string) {
	p.printf("\n[warn] API might not be running at %s\n", baseURL)
	if hint != "" {
		p.printf("%s\n", hint)
	}
}

func (p *Printer) HealthWarning(baseURL, hint string) {
	p.printf("\n[warn] API might not be configured correctly at %s\n", baseURL)
	if hint != "" {
		p.printf("%s\n", hint)
	}
}

func (p *Printer) ImageError(err error) {
	p.printf("  [fail] Could not create test image: %v\n", err)
}

func (p *Printer) UploadStart(target Target, endpoint string) {
	p.printf("\nTesting avatar upload for %s\n", target)
	p.printf("  Sending request to: %s\n", endpoint)
}

func (p *Printer) Upload(u *UploadOutcome) {
	if u.Failure == FailureConnectivity {
		p.printf("  [fail] Request error: %s\n", u.Error)
		return
	}
	p.printf("  Status: %d\n", u.StatusCode)
	if p.showHeaders && len(u.Headers) > 0 {
		p.printf("  Response Headers:\n")
		names := make([]string, 0, len(u.Headers))
		for name := range u.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p.printf("    %s: %s\n", name, u.Headers[name])
		}
	}
	p.printf("  Response: %s\n", Preview(u.Body, p.preview))

	switch {
	case u.Success:
		p.printf("  [ok] Upload successful!\n")
		p.printf("  Avatar URL: %s\n", u.AvatarURL)
		if u.URLField != avatarURLFields[0] {
			p.printf("  (returned as %q)\n", u.URLField)
		}
	case u.Failure == FailurePayload:
		p.printf("  [fail] %s\n", u.Error)
	default:
		p.printf("  [fail] Upload failed\n")
	}
}

func (p *Printer) Classification(c *URLClassification, exp Expectations) {
	p.printf("\nChecking returned URL against expected storage settings...\n")
	switch c.Bucket {
	case VerdictIncorrect:
		p.printf("  [warn] API is using %s bucket\n", c.BucketMatch)
	case VerdictCorrect:
		p.printf("  [ok] API is using %s bucket\n", c.BucketMatch)
	default:
		if exp.Bucket != "" {
			p.printf("  [?] Bucket not recognised (expected %s)\n", exp.Bucket)
		}
	}
	switch c.Region {
	case VerdictIncorrect:
		p.printf("  [warn] API is using %s region (incorrect)\n", c.RegionMatch)
	case VerdictCorrect:
		p.printf("  [ok] API is using %s region (correct)\n", c.RegionMatch)
	default:
		if exp.Region != "" {
			p.printf("  [?] Region not recognised (expected %s)\n", exp.Region)
		}
	}
}

func (p *Printer) Inspection(i *ObjectInspection) {
	p.printf("\nInspecting stored object...\n")
	if i.Location != nil {
		p.printf("  Location: %s\n", i.Location)
	}
	if !i.Found {
		p.printf("  [fail] %s\n", i.Error)
		return
	}
	p.printf("  Size: %d bytes\n", i.Size)
	if i.ContentType != "" {
		p.printf("  Content-Type: %s\n", i.ContentType)
	}
	if i.ETag != "" {
		p.printf("  ETag: %s\n", i.ETag)
	}
	if i.LastModified != nil {
		p.printf("  Last-Modified: %s\n", i.LastModified.UTC().Format(time.RFC3339))
	}
	if i.SizeMatches {
		p.printf("  [ok] Stored object found\n")
	} else {
		p.printf("  [warn] Stored size differs from uploaded image (%d bytes)\n", i.ExpectedSize)
	}
}

func (p *Printer) Access(a *AccessOutcome) {
	p.printf("\nTesting image access...\n")
	p.printf("  URL: %s\n", a.URL)
	p.accessLines(a, "")
	if a.Hop != nil {
		p.printf("  Redirect Status: %d\n", a.Hop.StatusCode)
		p.accessLines(a.Hop, " via redirect")
	}
}

func (p *Printer) accessLines(a *AccessOutcome, suffix string) {
	switch a.State {
	case AccessUnreachable:
		p.printf("  [fail] Cannot access image%s: %s\n", suffix, a.Error)
		return
	case AccessAccessible:
		if suffix == "" {
			p.printf("  Status: %d\n", a.StatusCode)
		}
		if a.ContentType != "" {
			p.printf("  Content-Type: %s\n", a.ContentType)
		}
		if a.ContentLength >= 0 {
			p.printf("  Content-Length: %d bytes\n", a.ContentLength)
		}
		p.printf("  [ok] Image is accessible%s\n", suffix)
		return
	}

	if suffix == "" {
		p.printf("  Status: %d\n", a.StatusCode)
	}
	switch a.State {
	case AccessRedirected:
		p.printf("  Redirect to: %s\n", a.Location)
		if a.Error != "" {
			p.printf("  [fail] %s\n", a.Error)
		}
	case AccessForbidden:
		p.printf("  [warn] Access denied%s (S3 permissions issue)\n", suffix)
	case AccessNotFound:
		p.printf("  [fail] Image not found%s\n", suffix)
	default:
		p.printf("  [?] Unexpected status%s: %d\n", suffix, a.StatusCode)
	}
}

func (p *Printer) Archived(bucket, key string) {
	p.printf("\nReport archived to s3://%s/%s\n", bucket, key)
}

func prettyJSON(body string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(body)), "", "  "); err != nil {
		return ""
	}
	return buf.String()
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
