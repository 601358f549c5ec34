package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adhocore/jsonc"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Health gate modes decide what a failed health check does to the run.
const (
	HealthGateStrict  = "strict"
	HealthGateWarn    = "warn"
	HealthGateConnect = "connect"
)

const (
	AccessMethodHead = "head"
	AccessMethodGet  = "get"
)

const (
	defaultHealthTimeout = 5 * time.Second
	defaultUploadTimeout = 10 * time.Second
	defaultAccessTimeout = 5 * time.Second
)

type Config struct {
	DefaultProfile string             `json:"default_profile"`
	Profiles       map[string]Profile `json:"profiles"`
	Defaults       DefaultsConfig     `json:"defaults"`
}

type Profile struct {
	Title         string            `json:"title"`
	BaseURL       string            `json:"base_url"`
	TargetKind    string            `json:"target_kind"`
	TargetID      string            `json:"target_id"`
	HealthTimeout string            `json:"health_timeout"`
	UploadTimeout string            `json:"upload_timeout"`
	AccessTimeout string            `json:"access_timeout"`
	HealthGate    string            `json:"health_gate"`
	HealthHint    string            `json:"health_hint"`
	AccessMethod  string            `json:"access_method"`
	VerifyAccess  bool              `json:"verify_access"`
	BodyPreview   int               `json:"body_preview"`
	ShowHeaders   bool              `json:"show_headers"`
	Image         ImageSpec         `json:"image"`
	FormFields    map[string]string `json:"form_fields"`
	Classify      bool              `json:"classify"`
	Expect        Expectations      `json:"expect"`
	Inspect       bool              `json:"inspect"`
	Storage       StorageConfig     `json:"storage"`
	Archive       ArchiveConfig     `json:"archive"`
}

// StorageConfig is the S3 access used by inspect and archive.
type StorageConfig struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// ArchiveConfig enables uploading run reports when Bucket is set.
type ArchiveConfig struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

type DefaultsConfig struct {
	LogLevel string `json:"log_level"`
	Output   string `json:"output"`
	Progress bool   `json:"progress"`
}

// ResolveOptions carries the command-line overrides.
type ResolveOptions struct {
	ConfigPath string
	Profile    string
	BaseURL    string
	UserID     string
	SubjectID  string
	RandomUser bool
}

type ResolvedConfig struct {
	Profile string
	Title   string
	BaseURL string
	Target  Target

	HealthTimeout time.Duration
	UploadTimeout time.Duration
	AccessTimeout time.Duration

	HealthGate   string
	HealthHint   string
	AccessMethod string
	VerifyAccess bool
	BodyPreview  int
	ShowHeaders  bool

	Image      ImageSpec
	FormFields map[string]string

	Classify bool
	Expect   Expectations

	Inspect bool
	Storage StorageConfig
	Archive ArchiveConfig

	LogLevel string
	Output   string
	Progress bool
}

// NeedsStorage reports whether the run needs an S3 client.
func (r *ResolvedConfig) NeedsStorage() bool {
	return r.Inspect || r.Archive.Bucket != ""
}

// LoadEnvFile loads KEY=value pairs from path into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func LoadConfig(configPath string) (*Config, error) {
	var actualPath string
	var err error

	if configPath != "" {
		actualPath = configPath
	} else {
		actualPath, err = findConfigFile()
		if err != nil {
			return getDefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(actualPath)
	if err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", actualPath, err)
		}
		return getDefaultConfig(), nil
	}

	j := jsonc.New()
	var config Config
	if err := j.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", actualPath, err)
	}
	LogDebug("Loaded config from %s", actualPath)

	return &config, nil
}

func findConfigFile() (string, error) {
	homeDir, _ := os.UserHomeDir()

	candidates := []string{
		"./avatarprobe.json5",
		filepath.Join(homeDir, ".avatarprobe", "config.json5"),
		"/etc/avatarprobe/config.json5",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found")
}

const (
	localBaseURL      = "http://3.24.16.82:8014"
	productionBaseURL = "https://api.hey-watch.me/avatar"
	fixtureUserID     = "164CBA5A-DBA6-4CBC-9B39-4EEA28D98FA5"
)

func getDefaultConfig() *Config {
	return &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				Title:         "Avatar Uploader API Test",
				BaseURL:       localBaseURL,
				TargetKind:    TargetUsers,
				TargetID:      fixtureUserID,
				HealthTimeout: "5s",
				UploadTimeout: "10s",
				AccessTimeout: "5s",
				HealthGate:    HealthGateStrict,
				AccessMethod:  AccessMethodHead,
				VerifyAccess:  true,
				Image: ImageSpec{
					Width:    100,
					Height:   100,
					Fill:     FillSolid,
					Color:    "blue",
					Format:   "jpeg",
					Filename: "test_avatar.jpg",
				},
			},
			"production": {
				Title:         "Production Avatar Uploader API Test",
				BaseURL:       productionBaseURL,
				TargetKind:    TargetUsers,
				TargetID:      fixtureUserID,
				HealthTimeout: "10s",
				UploadTimeout: "30s",
				AccessTimeout: "10s",
				HealthGate:    HealthGateWarn,
				HealthHint:    "Check Nginx configuration for /avatar proxy pass",
				AccessMethod:  AccessMethodGet,
				VerifyAccess:  true,
				BodyPreview:   500,
				ShowHeaders:   true,
				Image: ImageSpec{
					Width:    500,
					Height:   500,
					Fill:     FillGradient,
					Format:   "jpeg",
					Quality:  90,
					Filename: "test_avatar.jpg",
				},
			},
			"config-check": {
				Title:         "Avatar Uploader API Configuration Check",
				BaseURL:       localBaseURL,
				TargetKind:    TargetUsers,
				TargetID:      "test-" + strings.Repeat("a", 32),
				HealthTimeout: "5s",
				UploadTimeout: "10s",
				AccessTimeout: "5s",
				HealthGate:    HealthGateConnect,
				AccessMethod:  AccessMethodHead,
				Image: ImageSpec{
					Width:    10,
					Height:   10,
					Fill:     FillSolid,
					Color:    "red",
					Format:   "jpeg",
					Filename: "test.jpg",
				},
				Classify: true,
				Expect: Expectations{
					Bucket:      "watchme-avatars",
					WrongBucket: "watchme-vault",
					Region:      "ap-southeast-2",
					WrongRegion: "us-east-1",
				},
			},
		},
		Defaults: DefaultsConfig{
			LogLevel: "info",
			Output:   "text",
			Progress: true,
		},
	}
}

func ResolveConfig(opts ResolveOptions) (*ResolvedConfig, error) {
	config, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	profile := opts.Profile
	if profile == "" {
		profile = config.DefaultProfile
	}
	if profile == "" {
		profile = "local"
	}

	p, exists := config.Profiles[profile]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found in config", profile)
	}

	resolved := &ResolvedConfig{
		Profile:      profile,
		Title:        p.Title,
		BaseURL:      resolveBaseURL(opts.BaseURL, p.BaseURL),
		HealthGate:   strings.ToLower(p.HealthGate),
		HealthHint:   p.HealthHint,
		AccessMethod: strings.ToLower(p.AccessMethod),
		VerifyAccess: p.VerifyAccess,
		BodyPreview:  p.BodyPreview,
		ShowHeaders:  p.ShowHeaders,
		Image:        p.Image,
		FormFields:   p.FormFields,
		Classify:     p.Classify,
		Expect:       p.Expect,
		Inspect:      p.Inspect,
		Storage: StorageConfig{
			Region:    resolveRegion(p.Storage.Region),
			Endpoint:  resolveEndpoint(p.Storage.Endpoint),
			AccessKey: resolveAccessKey(p.Storage.AccessKey),
			SecretKey: resolveSecretKey(p.Storage.SecretKey),
		},
		Archive:  p.Archive,
		LogLevel: config.Defaults.LogLevel,
		Output:   config.Defaults.Output,
		Progress: config.Defaults.Progress,
	}

	if resolved.Title == "" {
		resolved.Title = "Avatar Uploader API Probe"
	}
	if resolved.BaseURL == "" {
		return nil, fmt.Errorf("profile '%s' has no base_url", profile)
	}

	resolved.Target, err = resolveTarget(opts, p)
	if err != nil {
		return nil, err
	}

	if resolved.HealthTimeout, err = parseTimeout("health_timeout", p.HealthTimeout, defaultHealthTimeout); err != nil {
		return nil, err
	}
	if resolved.UploadTimeout, err = parseTimeout("upload_timeout", p.UploadTimeout, defaultUploadTimeout); err != nil {
		return nil, err
	}
	if resolved.AccessTimeout, err = parseTimeout("access_timeout", p.AccessTimeout, defaultAccessTimeout); err != nil {
		return nil, err
	}

	switch resolved.HealthGate {
	case "":
		resolved.HealthGate = HealthGateStrict
	case HealthGateStrict, HealthGateWarn, HealthGateConnect:
	default:
		return nil, fmt.Errorf("invalid health_gate %q (must be strict, warn or connect)", p.HealthGate)
	}

	switch resolved.AccessMethod {
	case "":
		resolved.AccessMethod = AccessMethodHead
	case AccessMethodHead, AccessMethodGet:
	default:
		return nil, fmt.Errorf("invalid access_method %q (must be head or get)", p.AccessMethod)
	}

	if resolved.Archive.Bucket != "" && resolved.Archive.Prefix == "" {
		resolved.Archive.Prefix = "reports"
	}

	return resolved, nil
}

func resolveTarget(opts ResolveOptions, p Profile) (Target, error) {
	switch {
	case opts.SubjectID != "":
		return Target{Kind: TargetSubjects, ID: opts.SubjectID}, nil
	case opts.RandomUser:
		return Target{Kind: TargetUsers, ID: strings.ToUpper(uuid.NewString())}, nil
	case opts.UserID != "":
		return Target{Kind: TargetUsers, ID: opts.UserID}, nil
	}

	kind := p.TargetKind
	if kind == "" {
		kind = TargetUsers
	}
	if kind != TargetUsers && kind != TargetSubjects {
		return Target{}, fmt.Errorf("invalid target_kind %q (must be users or subjects)", p.TargetKind)
	}

	id := p.TargetID
	if env := os.Getenv("AVATARPROBE_USER_ID"); env != "" {
		id = env
	}
	if id == "" {
		return Target{}, fmt.Errorf("no target id configured (set target_id, AVATARPROBE_USER_ID or --user)")
	}
	return Target{Kind: kind, ID: id}, nil
}

func parseTimeout(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return d, nil
}

func resolveBaseURL(override, configValue string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("AVATARPROBE_BASE_URL"); env != "" {
		return env
	}
	return configValue
}

func resolveRegion(configValue string) string {
	if env := os.Getenv("AWS_REGION"); env != "" {
		return env
	}
	if configValue != "" {
		return configValue
	}
	return "ap-southeast-2"
}

func resolveEndpoint(configValue string) string {
	if env := os.Getenv("AWS_ENDPOINT_URL"); env != "" {
		return env
	}
	return configValue
}

func resolveAccessKey(configValue string) string {
	if env := os.Getenv("AWS_ACCESS_KEY_ID"); env != "" {
		return env
	}
	return configValue
}

func resolveSecretKey(configValue string) string {
	if env := os.Getenv("AWS_SECRET_ACCESS_KEY"); env != "" {
		return env
	}
	return configValue
}

// GetProfileNames returns the profile names sorted.
func (c *Config) GetProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Default Profile: %s\n", c.DefaultProfile))
	sb.WriteString("Profiles:\n")
	for _, name := range c.GetProfileNames() {
		profile := c.Profiles[name]
		sb.WriteString(fmt.Sprintf("  %s:\n", name))
		sb.WriteString(fmt.Sprintf("    Base URL: %s\n", profile.BaseURL))
		if profile.TargetID != "" {
			kind := profile.TargetKind
			if kind == "" {
				kind = TargetUsers
			}
			sb.WriteString(fmt.Sprintf("    Target: %s/%s\n", kind, profile.TargetID))
		}
		if profile.HealthGate != "" {
			sb.WriteString(fmt.Sprintf("    Health Gate: %s\n", profile.HealthGate))
		}
		if profile.Archive.Bucket != "" {
			sb.WriteString(fmt.Sprintf("    Archive Bucket: %s\n", profile.Archive.Bucket))
		}
	}
	return sb.String()
}

// DefaultConfigTemplate is written by `config init`.
const DefaultConfigTemplate = `{
  // avatarprobe configuration file
  "default_profile": "local",

  "profiles": {
    "local": {
      "base_url": "http://3.24.16.82:8014",
      "target_kind": "users",
      "target_id": "164CBA5A-DBA6-4CBC-9B39-4EEA28D98FA5",
      "health_timeout": "5s",
      "upload_timeout": "10s",
      "access_timeout": "5s",
      "health_gate": "strict",   // strict | warn | connect
      "access_method": "head",   // head | get
      "verify_access": true,
      "image": { "width": 100, "height": 100, "fill": "solid", "color": "blue", "filename": "test_avatar.jpg" }
    },
    "production": {
      "base_url": "https://api.hey-watch.me/avatar",
      "target_id": "164CBA5A-DBA6-4CBC-9B39-4EEA28D98FA5",
      "health_timeout": "10s",
      "upload_timeout": "30s",
      "access_timeout": "10s",
      "health_gate": "warn",
      "health_hint": "Check Nginx configuration for /avatar proxy pass",
      "access_method": "get",
      "verify_access": true,
      "body_preview": 500,
      "show_headers": true,
      "image": { "width": 500, "height": 500, "fill": "gradient", "quality": 90, "filename": "test_avatar.jpg" }
      // "inspect": true, "storage": { "region": "ap-southeast-2" },
      // "archive": { "bucket": "my-probe-reports" }
    },
    "config-check": {
      "base_url": "http://3.24.16.82:8014",
      "target_id": "test-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
      "health_gate": "connect",
      "image": { "width": 10, "height": 10, "fill": "solid", "color": "red", "filename": "test.jpg" },
      "classify": true,
      "expect": {
        "bucket": "watchme-avatars",
        "wrong_bucket": "watchme-vault",
        "region": "ap-southeast-2",
        "wrong_region": "us-east-1"
      }
    }
  },

  "defaults": {
    "log_level": "info",
    "output": "text",
    "progress": true
  }
}
`
