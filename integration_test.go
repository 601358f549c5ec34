package main

import (
	"context"
	"os"
	"testing"
	"time"

	"avatarprobe/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration test - set INTEGRATION_TEST=1 to run")
	}

	baseURL := os.Getenv("AVATARPROBE_BASE_URL")
	if baseURL == "" {
		t.Skip("AVATARPROBE_BASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg, err := internal.ResolveConfig(internal.ResolveOptions{
		Profile:    os.Getenv("AVATARPROBE_PROFILE"),
		BaseURL:    baseURL,
		RandomUser: true,
	})
	require.NoError(t, err)
	cfg.Progress = false

	report := internal.NewRunner(cfg, internal.NewProbeFromConfig(cfg), nil).Run(ctx)

	require.NotNil(t, report.Health)
	assert.True(t, report.Health.Healthy, "health: %s", report.Health.Error)
	require.NotNil(t, report.Upload, "run halted before upload")
	assert.True(t, report.Upload.Success, "upload: %s", report.Upload.Error)
	if cfg.VerifyAccess {
		assert.True(t, report.Access.Reachable(), "access: %s", report.Access.Error)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	flags, remaining := parseGlobalFlags([]string{
		"-p", "production", "--random-user", "-o", "json", "--no-progress", "access", "https://x/a.jpg",
	})

	assert.Equal(t, "production", flags.Profile)
	assert.True(t, flags.RandomUser)
	assert.Equal(t, "json", flags.Output)
	assert.True(t, flags.NoProgress)
	assert.Equal(t, []string{"access", "https://x/a.jpg"}, remaining)
}

func TestParseLogLevelFlag(t *testing.T) {
	level, err := parseLogLevelFlag("3")
	require.NoError(t, err)
	assert.Equal(t, internal.LogLevelDebug, level)

	level, err = parseLogLevelFlag("error")
	require.NoError(t, err)
	assert.Equal(t, internal.LogLevelError, level)

	_, err = parseLogLevelFlag("7")
	assert.Error(t, err)
}
