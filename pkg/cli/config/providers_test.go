package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/pelletier/go-toml/v2"
	"github.com/relayforge/taskmesh/pkg/cli/config"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

const validConfig = `
strategy = "hybrid"
vector_dimension = 3

[[provider]]
name = "local"
endpoint = "http://localhost:9000"
cost_per_token = 0.001
latency_estimate_ms = 50

[[provider]]
name = "gpt4"
endpoint = "https://gpt4.example.com"
credential = "sk-test"
models = ["gpt-4o", "gpt-4o-mini"]
cost_per_token = 0.03
latency_estimate_ms = 800
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestProvidersFileParse(t *testing.T) {
	var file config.ProvidersFile
	gt.NoError(t, toml.Unmarshal([]byte(validConfig), &file)).Required()

	gt.Value(t, file.Strategy).Equal("hybrid")
	gt.Value(t, file.VectorDimension).Equal(3)
	gt.Array(t, file.Providers).Length(2)
	gt.Value(t, file.Providers[0].Name).Equal(types.ProviderName("local"))
	gt.Value(t, file.Providers[1].Credential).Equal("sk-test")
	gt.Array(t, file.Providers[1].Models).Length(2)
	gt.NoError(t, file.Validate())
}

func TestProvidersFileValidate(t *testing.T) {
	base := func() *config.ProvidersFile {
		var file config.ProvidersFile
		gt.NoError(t, toml.Unmarshal([]byte(validConfig), &file)).Required()
		return &file
	}

	t.Run("valid config passes", func(t *testing.T) {
		gt.NoError(t, base().Validate())
	})

	t.Run("invalid strategy is rejected", func(t *testing.T) {
		file := base()
		file.Strategy = "random"
		gt.Value(t, file.Validate()).NotNil()
	})

	t.Run("duplicate provider names are rejected", func(t *testing.T) {
		file := base()
		file.Providers[1].Name = file.Providers[0].Name
		gt.Value(t, file.Validate()).NotNil()
	})

	t.Run("empty provider list is rejected", func(t *testing.T) {
		file := base()
		file.Providers = nil
		gt.Value(t, file.Validate()).NotNil()
	})

	t.Run("provider without endpoint is rejected", func(t *testing.T) {
		file := base()
		file.Providers[0].Endpoint = ""
		gt.Value(t, file.Validate()).NotNil()
	})

	t.Run("negative vector dimension is rejected", func(t *testing.T) {
		file := base()
		file.VectorDimension = -1
		gt.Value(t, file.Validate()).NotNil()
	})
}

func TestProvidersFileRouteStrategy(t *testing.T) {
	var file config.ProvidersFile
	gt.NoError(t, toml.Unmarshal([]byte(validConfig), &file)).Required()
	gt.Value(t, file.RouteStrategy()).Equal(types.RouteStrategyHybrid)
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := writeConfig(t, validConfig)

	data, err := os.ReadFile(path)
	gt.NoError(t, err).Required()

	var file config.ProvidersFile
	gt.NoError(t, toml.Unmarshal(data, &file)).Required()
	gt.NoError(t, file.Validate())
}
