package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		Timeout Duration `yaml:"timeout"`
	}

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: 90s`), &cfg))
	assert.Equal(t, 90*time.Second, cfg.Timeout.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: 1h30m`), &cfg))
	assert.Equal(t, 90*time.Minute, cfg.Timeout.Std())

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: 1000000000`), &cfg))
	assert.Equal(t, time.Second, cfg.Timeout.Std(), "bare integers are nanoseconds")

	assert.Error(t, yaml.Unmarshal([]byte(`timeout: soon`), &cfg))
}

func TestDuration_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		TTL Duration `yaml:"ttl"`
	}{TTL: Duration(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "ttl: 1m0s\n", string(out))
}
