package internal

import (
	"encoding/json"
	"time"
)

// CommandResult is the generic wrapper for all command results in JSON mode
type CommandResult struct {
	Success bool        `json:"success"`
	Command string      `json:"command"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FailureKind separates why a step failed: the service could not be
// reached, it answered with the wrong status, or its body was unusable.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureConnectivity FailureKind = "connectivity"
	FailureProtocol     FailureKind = "protocol"
	FailurePayload      FailureKind = "payload"
)

// HealthResult is the outcome of GET <base>/health.
type HealthResult struct {
	URL        string      `json:"url"`
	Healthy    bool        `json:"healthy"`
	StatusCode int         `json:"status_code,omitempty"`
	Body       string      `json:"body,omitempty"`
	Failure    FailureKind `json:"failure,omitempty"`
	Error      string      `json:"error,omitempty"`
	ElapsedMS  int64       `json:"elapsed_ms"`
}

// UploadOutcome is the outcome of the multipart avatar POST.
type UploadOutcome struct {
	Endpoint   string            `json:"endpoint"`
	Success    bool              `json:"success"`
	StatusCode int               `json:"status_code,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	AvatarURL  string            `json:"avatar_url,omitempty"`
	URLField   string            `json:"url_field,omitempty"`
	Failure    FailureKind       `json:"failure,omitempty"`
	Error      string            `json:"error,omitempty"`
	ElapsedMS  int64             `json:"elapsed_ms"`
}

// AccessState classifies the status of a GET/HEAD on the returned URL.
type AccessState string

const (
	AccessAccessible  AccessState = "accessible"
	AccessForbidden   AccessState = "forbidden"
	AccessNotFound    AccessState = "not_found"
	AccessRedirected  AccessState = "redirected"
	AccessUnexpected  AccessState = "unexpected"
	AccessUnreachable AccessState = "unreachable"
)

// AccessOutcome is one accessibility request. Hop holds the single
// followed redirect, if any.
type AccessOutcome struct {
	URL           string         `json:"url"`
	Method        string         `json:"method"`
	StatusCode    int            `json:"status_code,omitempty"`
	State         AccessState    `json:"state"`
	ContentType   string         `json:"content_type,omitempty"`
	ContentLength int64          `json:"content_length"`
	Location      string         `json:"location,omitempty"`
	Hop           *AccessOutcome `json:"hop,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Reachable reports whether the resource was fetched, directly or via
// the one permitted redirect.
func (a *AccessOutcome) Reachable() bool {
	if a == nil {
		return false
	}
	if a.State == AccessAccessible {
		return true
	}
	return a.State == AccessRedirected && a.Hop != nil && a.Hop.State == AccessAccessible
}

// Verdict is the result of one URL heuristic.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictUnknown   Verdict = "unknown"
)

// URLClassification is the informational bucket/region check.
type URLClassification struct {
	URL         string  `json:"url"`
	Bucket      Verdict `json:"bucket"`
	BucketMatch string  `json:"bucket_match,omitempty"`
	Region      Verdict `json:"region"`
	RegionMatch string  `json:"region_match,omitempty"`
}

// ObjectInspection is the optional HeadObject check of the stored avatar.
type ObjectInspection struct {
	Location     *ObjectLocation `json:"location,omitempty"`
	Found        bool            `json:"found"`
	Size         int64           `json:"size,omitempty"`
	ContentType  string          `json:"content_type,omitempty"`
	ETag         string          `json:"etag,omitempty"`
	LastModified *time.Time      `json:"last_modified,omitempty"`
	ExpectedSize int64           `json:"expected_size,omitempty"`
	SizeMatches  bool            `json:"size_matches"`
	Error        string          `json:"error,omitempty"`
}

// ImageSummary describes the synthetic image that was sent.
type ImageSummary struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int    `json:"size"`
}

// RunReport aggregates every step of one probe run.
type RunReport struct {
	Profile        string             `json:"profile"`
	BaseURL        string             `json:"base_url"`
	Target         Target             `json:"target"`
	Operator       string             `json:"operator"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Health         *HealthResult      `json:"health,omitempty"`
	Halted         bool               `json:"halted"`
	Image          *ImageSummary      `json:"image,omitempty"`
	ImageError     string             `json:"image_error,omitempty"`
	Upload         *UploadOutcome     `json:"upload,omitempty"`
	Classification *URLClassification `json:"classification,omitempty"`
	Inspection     *ObjectInspection  `json:"inspection,omitempty"`
	Access         *AccessOutcome     `json:"access,omitempty"`
	ArchiveKey     string             `json:"archive_key,omitempty"`
	ExitCode       int                `json:"exit_code"`
}

func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func RunReportFromJSON(data []byte) (*RunReport, error) {
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// VersionResult contains the result of a version command
type VersionResult struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// ConfigShowResult contains the result of a config show command
type ConfigShowResult struct {
	Profile     string `json:"profile"`
	BaseURL     string `json:"base_url"`
	Target      Target `json:"target"`
	HealthGate  string `json:"health_gate"`
	AccessCheck string `json:"access_check"`
}

// ConfigListResult contains the result of a config list command
type ConfigListResult struct {
	Profiles       []string `json:"profiles"`
	DefaultProfile string   `json:"default_profile"`
}
