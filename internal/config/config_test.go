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

const fullYAML = `
server:
  port: 9090
log:
  level: DEBUG
seed: false
simulation:
  tick_interval: 2s
  min_increment: 10
  max_increment: 30
  allow_parallel: true
chat:
  reply_delay: 250ms
clients:
  delete_policy: cascade
notify:
  platform: slack
  slack:
    bot_token: xoxb-test
    channel_id: C123
  events:
    progress: true
    artifacts: false
`

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Seed, "Seed defaults to true")
	assert.Equal(t, DeleteOrphan, cfg.Clients.DeletePolicy)
	assert.Equal(t, PlatformNone, cfg.Notify.Platform)
	assert.NoError(t, cfg.validate(), "default config validates")
}

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.Simulation.TickInterval)
	assert.Equal(t, 10, cfg.Simulation.MinIncrement)
	assert.Equal(t, 30, cfg.Simulation.MaxIncrement)
	assert.True(t, cfg.Simulation.AllowParallel)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.ReplyDelay)
	assert.Equal(t, DeleteCascade, cfg.Clients.DeletePolicy)
	assert.Equal(t, "xoxb-test", cfg.Notify.Slack.BotToken)
}

func TestParse_EventTogglesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)
	ev := cfg.Notify.Events
	assert.True(t, ev.Projects, "unset toggles keep defaults")
	assert.True(t, ev.Departments, "unset toggles keep defaults")
	assert.True(t, ev.Progress)
	assert.False(t, ev.Artifacts)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Simulation.TickInterval)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("DEVTEAM_TEST_TOKEN", "xoxb-from-env")
	cfg, err := Parse([]byte(`
notify:
  platform: slack
  slack:
    bot_token: ${DEVTEAM_TEST_TOKEN}
    channel_id: C1
`))
	require.NoError(t, err)
	assert.Equal(t, "xoxb-from-env", cfg.Notify.Slack.BotToken)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"short tick", "simulation:\n  tick_interval: 100ms\n", "tick_interval"},
		{"inverted increments", "simulation:\n  min_increment: 50\n  max_increment: 10\n", "min_increment"},
		{"bad policy", "clients:\n  delete_policy: shred\n", "delete_policy"},
		{"bad platform", "notify:\n  platform: irc\n", "notify.platform"},
		{"slack missing token", "notify:\n  platform: slack\n", "notify.slack.bot_token"},
		{"bad digest", "notify:\n  digest: every morning\n", "notify.digest"},
		{"discord missing channel", "notify:\n  platform: discord\n  discord:\n    bot_token: abc\n", "notify.discord.channel_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), "config: validation failed:"),
				"error %q should be a validation error", err)
		})
	}
}

func TestParse_Digest(t *testing.T) {
	cfg, err := Parse([]byte("notify:\n  digest: \"0 9 * * 1-5\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * 1-5", cfg.Notify.Digest)
}

func TestParse_AggregatesErrors(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: loud\nclients:\n  delete_policy: shred\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "; ", "both problems are joined")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullYAML), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick_interval: 1s", "durations render as strings")
	cfg, err := Parse(data)
	require.NoError(t, err, "re-parse")
	assert.Equal(t, 1500*time.Millisecond, cfg.Chat.ReplyDelay)
}
