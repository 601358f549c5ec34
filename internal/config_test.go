package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatarprobe.json5")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_DefaultConfig(t *testing.T) {
	config, err := LoadConfig("")

	assert.NoError(t, err)
	assert.Equal(t, "local", config.DefaultProfile)
	assert.Equal(t, []string{"config-check", "local", "production"}, config.GetProfileNames())
	assert.Equal(t, "http://3.24.16.82:8014", config.Profiles["local"].BaseURL)
	assert.Equal(t, "https://api.hey-watch.me/avatar", config.Profiles["production"].BaseURL)
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json5"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_WithComments(t *testing.T) {
	path := writeConfig(t, `{
		// staging deployment
		"default_profile": "staging",
		"profiles": {
			"staging": {
				"base_url": "http://staging:8014", // direct to EC2
				/*
				 * subjects share the same service
				 */
				"target_kind": "subjects",
				"target_id": "71958203-e43a-4510-bdfd-a9459388e830"
			}
		}
	}`)

	config, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "staging", config.DefaultProfile)
	assert.Equal(t, "subjects", config.Profiles["staging"].TargetKind)
}

func TestLoadConfig_TemplateParses(t *testing.T) {
	path := writeConfig(t, DefaultConfigTemplate)

	config, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Len(t, config.Profiles, 3)
	assert.Equal(t, 500, config.Profiles["production"].BodyPreview)
	assert.Equal(t, "watchme-vault", config.Profiles["config-check"].Expect.WrongBucket)
}

func TestResolveConfig_BuiltInProfiles(t *testing.T) {
	local, err := ResolveConfig(ResolveOptions{Profile: "local"})
	require.NoError(t, err)
	assert.Equal(t, HealthGateStrict, local.HealthGate)
	assert.Equal(t, AccessMethodHead, local.AccessMethod)
	assert.Equal(t, 5*time.Second, local.HealthTimeout)
	assert.Equal(t, 10*time.Second, local.UploadTimeout)
	assert.Equal(t, Target{Kind: "users", ID: "164CBA5A-DBA6-4CBC-9B39-4EEA28D98FA5"}, local.Target)

	prod, err := ResolveConfig(ResolveOptions{Profile: "production"})
	require.NoError(t, err)
	assert.Equal(t, HealthGateWarn, prod.HealthGate)
	assert.Equal(t, AccessMethodGet, prod.AccessMethod)
	assert.Equal(t, 30*time.Second, prod.UploadTimeout)
	assert.Equal(t, 500, prod.BodyPreview)
	assert.Equal(t, FillGradient, prod.Image.Fill)

	check, err := ResolveConfig(ResolveOptions{Profile: "config-check"})
	require.NoError(t, err)
	assert.Equal(t, HealthGateConnect, check.HealthGate)
	assert.True(t, check.Classify)
	assert.False(t, check.VerifyAccess)
	assert.Equal(t, "test-"+strings.Repeat("a", 32), check.Target.ID)
}

func TestResolveConfig_UnknownProfile(t *testing.T) {
	_, err := ResolveConfig(ResolveOptions{Profile: "staging"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "profile 'staging' not found")
}

func TestResolveConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"profiles": {
			"local": { "base_url": "http://localhost:8014", "target_id": "abc" }
		}
	}`)

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: path})

	require.NoError(t, err)
	assert.Equal(t, "local", resolved.Profile)
	assert.Equal(t, HealthGateStrict, resolved.HealthGate)
	assert.Equal(t, AccessMethodHead, resolved.AccessMethod)
	assert.Equal(t, defaultHealthTimeout, resolved.HealthTimeout)
	assert.Equal(t, defaultUploadTimeout, resolved.UploadTimeout)
	assert.Equal(t, defaultAccessTimeout, resolved.AccessTimeout)
	assert.Equal(t, TargetUsers, resolved.Target.Kind)
	assert.False(t, resolved.NeedsStorage())
}

func TestResolveConfig_FlagOverrides(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{
		Profile:   "local",
		BaseURL:   "http://localhost:9999",
		SubjectID: "subject-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", resolved.BaseURL)
	assert.Equal(t, Target{Kind: TargetSubjects, ID: "subject-1"}, resolved.Target)
}

func TestResolveConfig_RandomUser(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{Profile: "local", RandomUser: true})

	require.NoError(t, err)
	assert.Len(t, resolved.Target.ID, 36)
	assert.Equal(t, strings.ToUpper(resolved.Target.ID), resolved.Target.ID)
	assert.NotEqual(t, "164CBA5A-DBA6-4CBC-9B39-4EEA28D98FA5", resolved.Target.ID)
}

func TestResolveConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AVATARPROBE_BASE_URL", "http://env-host:8014")
	t.Setenv("AVATARPROBE_USER_ID", "env-user")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT_URL", "http://localhost:9000")

	resolved, err := ResolveConfig(ResolveOptions{Profile: "local"})

	require.NoError(t, err)
	assert.Equal(t, "http://env-host:8014", resolved.BaseURL)
	assert.Equal(t, "env-user", resolved.Target.ID)
	assert.Equal(t, "eu-west-1", resolved.Storage.Region)
	assert.Equal(t, "http://localhost:9000", resolved.Storage.Endpoint)

	flagged, err := ResolveConfig(ResolveOptions{Profile: "local", BaseURL: "http://flag:1", UserID: "flag-user"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:1", flagged.BaseURL)
	assert.Equal(t, "flag-user", flagged.Target.ID)
}

func TestResolveConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		errText string
	}{
		{"bad timeout", `{"base_url": "http://x", "target_id": "a", "health_timeout": "soon"}`, "invalid health_timeout"},
		{"negative timeout", `{"base_url": "http://x", "target_id": "a", "upload_timeout": "-1s"}`, "must be positive"},
		{"bad gate", `{"base_url": "http://x", "target_id": "a", "health_gate": "maybe"}`, "invalid health_gate"},
		{"bad method", `{"base_url": "http://x", "target_id": "a", "access_method": "options"}`, "invalid access_method"},
		{"bad kind", `{"base_url": "http://x", "target_id": "a", "target_kind": "groups"}`, "invalid target_kind"},
		{"no base url", `{"target_id": "a"}`, "has no base_url"},
		{"no target", `{"base_url": "http://x"}`, "no target id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, `{"default_profile": "p", "profiles": {"p": `+tc.profile+`}}`)

			_, err := ResolveConfig(ResolveOptions{ConfigPath: path})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestResolveConfig_ArchiveAndStorage(t *testing.T) {
	path := writeConfig(t, `{
		"default_profile": "prod",
		"profiles": {
			"prod": {
				"base_url": "https://api.example.com/avatar",
				"target_id": "u1",
				"inspect": true,
				"storage": { "region": "ap-southeast-2", "access_key": "AK", "secret_key": "SK" },
				"archive": { "bucket": "probe-reports" }
			}
		}
	}`)

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: path})

	require.NoError(t, err)
	assert.True(t, resolved.NeedsStorage())
	assert.Equal(t, "reports", resolved.Archive.Prefix)
	assert.Equal(t, "AK", resolved.Storage.AccessKey)
	assert.Equal(t, "SK", resolved.Storage.SecretKey)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AVATARPROBE_USER_ID=from-dotenv\nAVATARPROBE_BASE_URL=http://dotenv:8014\n"), 0644))
	t.Setenv("AVATARPROBE_BASE_URL", "http://already-set:8014")
	t.Setenv("AVATARPROBE_USER_ID", "")
	os.Unsetenv("AVATARPROBE_USER_ID")

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "from-dotenv", os.Getenv("AVATARPROBE_USER_ID"))
	assert.Equal(t, "http://already-set:8014", os.Getenv("AVATARPROBE_BASE_URL"))
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfig_String(t *testing.T) {
	config := getDefaultConfig()

	out := config.String()

	assert.Contains(t, out, "Default Profile: local")
	assert.Contains(t, out, "Base URL: https://api.hey-watch.me/avatar")
	assert.Contains(t, out, "Health Gate: connect")
}
