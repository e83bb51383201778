package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validYAML = `
darwin:
  topic_host: darwin.example.test
  topic_port: 61613
  topic_name: /topic/darwin.pushport-v16
  topic_username: user
  topic_password: pass
hsp:
  service_details_url: https://hsp.example.test/details
  service_metrics_url: https://hsp.example.test/metrics
  username: hspuser
  password: hsppass
`

func TestLoadValidConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, validYAML)
	cfg, err := Load(path, RequireDarwin, RequireHSP)
	require.NoError(t, err)

	assert.Equal(t, "darwin.example.test", cfg.Darwin.TopicHost)
	assert.Equal(t, 61613, cfg.Darwin.TopicPort)
	assert.Equal(t, "user", cfg.Darwin.TopicUsername)
	assert.Equal(t, 15*time.Second, cfg.Darwin.HeartBeat)
	assert.Equal(t, 15*time.Second, cfg.Darwin.ReconnectDelay)
	assert.Equal(t, "1", cfg.Darwin.SubscriptionID)
	assert.Equal(t, "auto", cfg.Darwin.AckMode)
	assert.Equal(t, "https://hsp.example.test/details", cfg.HSP.ServiceDetailsURL)
}

func TestLoadMissingRequiredFieldReturnsError(t *testing.T) {
	path := writeConfigFile(t, `
darwin:
  topic_host: darwin.example.test
`)
	_, err := Load(path, RequireDarwin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic_name")
}

func TestLoadEnvironmentOverridesConfigFile(t *testing.T) {
	path := writeConfigFile(t, validYAML)
	t.Setenv("RAILDELAY_DARWIN_TOPIC_PASSWORD", "from-env")

	cfg, err := Load(path, RequireDarwin)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Darwin.TopicPassword)
}

func TestLoadEnrichOnlyRequiresHSP(t *testing.T) {
	path := writeConfigFile(t, `
hsp:
  service_details_url: https://hsp.example.test/details
  username: hspuser
  password: hsppass
`)
	cfg, err := Load(path, RequireHSP)
	require.NoError(t, err)
	assert.Equal(t, "https://hsp.example.test/details", cfg.HSP.ServiceDetailsURL)
}

func TestLoadNoRequirementsSkipsValidation(t *testing.T) {
	path := writeConfigFile(t, `darwin:
  topic_host: darwin.example.test
`)
	_, err := Load(path)
	require.NoError(t, err)
}
