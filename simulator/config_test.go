package simulator

import (
	"encoding/json"
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	require.Equal(t, "M/M/1", config.Model())
}

func TestConfigModel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimConfig)
		want   string
	}{
		{"multi server", func(c *SimConfig) { c.Servers = 3 }, "M/M/3"},
		{"capacity", func(c *SimConfig) { c.Capacity = 10 }, "M/M/1/10"},
		{"finite source", func(c *SimConfig) { c.Population = 20 }, "M/M/1/infinite/20"},
		{"normal service", func(c *SimConfig) {
			c.Service = ServiceDistribution{Type: DistNormal, Mean: 1, StdDev: 0.2}
			c.Servers = 2
			c.Capacity = 4
			c.Population = 8
		}, "M/N/2/4/8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			require.Equal(t, tt.want, config.Model())
		})
	}
}

func TestConfigYAML(t *testing.T) {
	doc := `
arrivalRate: 0.8
service:
  type: normal
  mean: 1.2
  stdDev: 0.3
servers: 2
capacity: 10
population: infinite
horizon: 500
randomSeed: 99
`
	var config SimConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &config))
	require.NoError(t, config.Validate())
	require.Equal(t, 0.8, config.ArrivalRate)
	require.Equal(t, DistNormal, config.Service.Type)
	require.Equal(t, Limit(10), config.Capacity)
	require.True(t, config.Population.IsInfinite())
	require.Equal(t, int64(99), config.RandomSeed)

	out, err := yaml.Marshal(config)
	require.NoError(t, err)
	var back SimConfig
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, config, back)
}

func TestZeroCapacityRejectedByEveryDecoder(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		config := DefaultConfig()
		err := json.Unmarshal([]byte(`{"capacity": 0}`), &config)
		require.ErrorIs(t, err, ErrInvalidConfigValue)
		require.ErrorContains(t, err, "invalid limit")
	})

	t.Run("yaml", func(t *testing.T) {
		config := DefaultConfig()
		err := yaml.Unmarshal([]byte("capacity: 0\n"), &config)
		require.ErrorIs(t, err, ErrInvalidConfigValue)
	})

	t.Run("text", func(t *testing.T) {
		_, err := ParseLimit("0")
		require.ErrorIs(t, err, ErrInvalidConfigValue)
	})

	t.Run("validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Population = 0
		require.ErrorIs(t, config.Validate(), ErrInvalidConfigValue)
	})
}

func TestConfigDecodeHook(t *testing.T) {
	decode := func(t *testing.T, in map[string]interface{}) SimConfig {
		t.Helper()
		config := DefaultConfig()
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: ConfigDecodeHook(),
			Result:     &config,
		})
		require.NoError(t, err)
		require.NoError(t, dec.Decode(in))
		return config
	}

	config := decode(t, map[string]interface{}{"capacity": 4, "population": "infinite"})
	require.Equal(t, Limit(4), config.Capacity)
	require.True(t, config.Population.IsInfinite())
	require.NoError(t, config.Validate())

	config = decode(t, map[string]interface{}{"capacity": 6.0, "service": map[string]interface{}{"type": "normal", "mean": 1.0, "stdDev": 0.1}})
	require.Equal(t, Limit(6), config.Capacity)
	require.Equal(t, DistNormal, config.Service.Type)

	for _, bad := range []interface{}{0, -1, 0.0, 2.5, uint(0)} {
		config = decode(t, map[string]interface{}{"capacity": bad})
		require.ErrorIs(t, config.Validate(), ErrInvalidConfigValue, "capacity %v", bad)

		config = decode(t, map[string]interface{}{"population": bad})
		require.ErrorIs(t, config.Validate(), ErrInvalidConfigValue, "population %v", bad)
	}
}

func TestAccumulatorIgnoresEmptyIntervals(t *testing.T) {
	a := NewAccumulator()
	a.ChargeInterval(0, 5, 5)
	a.ChargeInterval(-1, 5, 5)
	require.Equal(t, 0.0, a.Elapsed())

	a.ChargeInterval(2, 1, 3)
	c := a.Clone()
	a.ChargeInterval(2, 1, 3)
	require.Equal(t, 2.0, c.Elapsed())
	require.Equal(t, 4.0, a.Elapsed())
}
