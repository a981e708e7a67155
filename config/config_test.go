package config

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

	path := filepath.Join(t.TempDir(), "agentlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "scripted", cfg.Model.Provider)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, 2, cfg.Agent.BackendRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Agent.BackendBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Agent.BackendTimeout)
	assert.Equal(t, time.Duration(0), cfg.Agent.TaskTimeout)
	assert.Equal(t, 2, cfg.Meeting.Rounds)
	assert.Equal(t, 3, cfg.Meeting.MaxTeamSize)
	assert.Equal(t, 2, cfg.Meeting.RedFlagRetries)
	assert.Equal(t, 6, cfg.Meeting.MaxSubtasks)
	assert.Equal(t, 200, cfg.Tools.MaxRows)
	assert.Equal(t, "agentlab", cfg.Telemetry.ServiceName)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: openai
  name: gpt-4o-mini
meeting:
  rounds: 3
  specialist_timeout: 90s
tools:
  dataset: /data/trials.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 3, cfg.Meeting.Rounds)
	assert.Equal(t, 90*time.Second, cfg.Meeting.SpecialistTimeout)
	assert.Equal(t, "/data/trials.db", cfg.Tools.Dataset)

	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Meeting.MaxTeamSize)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "meeting:\n  rounds: 3\n")

	t.Setenv("AGENTLAB_MEETING_ROUNDS", "5")
	t.Setenv("AGENTLAB_AGENT_MAX_ITERATIONS", "4")
	t.Setenv("AGENTLAB_MODEL_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Meeting.Rounds)
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Meeting.Rounds)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"team too small", "meeting:\n  max_team_size: 1\n", "max_team_size"},
		{"zero rounds", "meeting:\n  rounds: 0\n", "meeting.rounds"},
		{"unknown provider", "model:\n  provider: llama\n", "model.provider"},
		{"negative retries", "agent:\n  backend_retries: -1\n", "backend_retries"},
		{"bad sample rate", "telemetry:\n  sample_rate: 2\n", "sample_rate"},
		{"broken yaml", "meeting: [rounds\n", "parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	content := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"

	_, err := Load(writeConfig(t, content))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Meeting.Rounds = 0
	cfg.Meeting.MaxTeamSize = 1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "meeting.rounds")
	assert.Contains(t, err.Error(), "meeting.max_team_size")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "meeting.rounds", envKey("AGENTLAB_MEETING_ROUNDS"))
	assert.Equal(t, "agent.max_iterations", envKey("AGENTLAB_AGENT_MAX_ITERATIONS"))
	assert.Equal(t, "debug", envKey("AGENTLAB_DEBUG"))
}
