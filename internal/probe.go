package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	TargetUsers    = "users"
	TargetSubjects = "subjects"
)

// Cap on how much of a response body the probe keeps for display.
const maxBodyBytes = 1 << 20

// avatarURLFields are the accepted spellings of the URL in an upload
// response, in order of preference.
var avatarURLFields = []string{"avatarUrl", "avatar_url"}

// Target is the owner of the avatar: a user or a subject.
type Target struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (t Target) Path() string {
	return fmt.Sprintf("/v1/%s/%s/avatar", t.Kind, t.ID)
}

func (t Target) String() string {
	return t.Kind + "/" + t.ID
}

type ProbeOptions struct {
	HealthTimeout time.Duration
	UploadTimeout time.Duration
	AccessTimeout time.Duration
	AccessMethod  string
	FormFields    map[string]string
	Progress      bool
}

// Probe issues the health, upload and accessibility requests. Every call
// carries its own timeout; nothing is retried.
type Probe struct {
	client     *http.Client
	noRedirect *http.Client
	opts       ProbeOptions
}

func NewProbe(opts ProbeOptions) *Probe {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = defaultHealthTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.AccessTimeout <= 0 {
		opts.AccessTimeout = defaultAccessTimeout
	}
	if opts.AccessMethod == "" {
		opts.AccessMethod = AccessMethodHead
	}

	return &Probe{
		client: &http.Client{},
		noRedirect: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		opts: opts,
	}
}

// NewProbeFromConfig builds a probe from a resolved profile.
func NewProbeFromConfig(cfg *ResolvedConfig) *Probe {
	return NewProbe(ProbeOptions{
		HealthTimeout: cfg.HealthTimeout,
		UploadTimeout: cfg.UploadTimeout,
		AccessTimeout: cfg.AccessTimeout,
		AccessMethod:  cfg.AccessMethod,
		FormFields:    cfg.FormFields,
		Progress:      cfg.Progress,
	})
}

// JoinURL appends path to base without doubling the slash.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// CheckHealth reports healthy only for an exact 200. It never returns an
// error; failures are recorded on the result.
func (p *Probe) CheckHealth(ctx context.Context, baseURL string) *HealthResult {
	result := &HealthResult{URL: JoinURL(baseURL, "/health")}
	LogDebug("GET %s (timeout %s)", result.URL, p.opts.HealthTimeout)

	ctx, cancel := context.WithTimeout(ctx, p.opts.HealthTimeout)
	defer cancel()

	start := time.Now()
	defer func() { result.ElapsedMS = time.Since(start).Milliseconds() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		result.Failure = FailureConnectivity
		result.Error = fmt.Sprintf("invalid health URL: %v", err)
		return result
	}

	resp, err := p.client.Do(req)
	if err != nil {
		result.Failure = FailureConnectivity
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		LogDebug("Failed to read health body: %v", err)
	}
	result.Body = string(body)

	if resp.StatusCode != http.StatusOK {
		result.Failure = FailureProtocol
		result.Error = fmt.Sprintf("unexpected status: %d", resp.StatusCode)
		return result
	}

	result.Healthy = true
	return result
}

// UploadAvatar posts img as the multipart field "file". Success requires
// status 200 or 201, a JSON body, and a non-empty avatar URL in it.
func (p *Probe) UploadAvatar(ctx context.Context, baseURL string, target Target, img *SyntheticImage) *UploadOutcome {
	outcome := &UploadOutcome{Endpoint: JoinURL(baseURL, target.Path())}
	LogDebug("POST %s (%s, %d bytes, timeout %s)", outcome.Endpoint, img.Filename, len(img.Data), p.opts.UploadTimeout)

	body, contentType, err := buildMultipartBody(img, p.opts.FormFields)
	if err != nil {
		outcome.Failure = FailurePayload
		outcome.Error = fmt.Sprintf("failed to build multipart body: %v", err)
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.UploadTimeout)
	defer cancel()

	raw := body.Bytes()
	size := int64(len(raw))
	newBody := func() io.Reader { return bytes.NewReader(raw) }
	var bar *progressbar.ProgressBar
	if p.opts.Progress {
		bar = progressbar.DefaultBytes(size, "Uploading avatar")
		newBody = func() io.Reader {
			progressReader := progressbar.NewReader(bytes.NewReader(raw), bar)
			return &progressReader
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, outcome.Endpoint, newBody())
	if err != nil {
		outcome.Failure = FailureConnectivity
		outcome.Error = fmt.Sprintf("invalid upload URL: %v", err)
		return outcome
	}
	req.ContentLength = size
	// The client replays the body through GetBody on a 307/308.
	req.GetBody = func() (io.ReadCloser, error) {
		if bar != nil {
			bar.Reset()
		}
		return io.NopCloser(newBody()), nil
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	outcome.ElapsedMS = time.Since(start).Milliseconds()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		outcome.Failure = FailureConnectivity
		outcome.Error = err.Error()
		return outcome
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	outcome.Headers = flattenHeaders(resp.Header)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	outcome.Body = string(respBody)
	if err != nil {
		outcome.Failure = FailureConnectivity
		outcome.Error = fmt.Sprintf("failed to read response body: %v", err)
		return outcome
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		outcome.Failure = FailureProtocol
		outcome.Error = fmt.Sprintf("upload failed with status %d", resp.StatusCode)
		return outcome
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		outcome.Failure = FailurePayload
		outcome.Error = fmt.Sprintf("invalid JSON response: %v", err)
		return outcome
	}

	avatarURL, field := ExtractAvatarURL(payload)
	if avatarURL == "" {
		outcome.Failure = FailurePayload
		outcome.Error = fmt.Sprintf("response has no %s field", strings.Join(avatarURLFields, " or "))
		return outcome
	}

	outcome.Success = true
	outcome.AvatarURL = avatarURL
	outcome.URLField = field
	return outcome
}

// ExtractAvatarURL returns the first non-empty string under an accepted
// URL key, and the key it came from.
func ExtractAvatarURL(payload map[string]interface{}) (string, string) {
	for _, field := range avatarURLFields {
		if s, ok := payload[field].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), field
		}
	}
	return "", ""
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipartBody(img *SyntheticImage, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writer.WriteField(name, fields[name]); err != nil {
			return nil, "", err
		}
	}

	// CreateFormFile would force application/octet-stream.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(img.Filename)))
	header.Set("Content-Type", img.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func flattenHeaders(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for name, values := range h {
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}

// Preview truncates body to limit runes, marking the cut with "...".
// A non-positive limit returns the body unchanged.
func Preview(body string, limit int) string {
	if limit <= 0 {
		return body
	}
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "..."
}
