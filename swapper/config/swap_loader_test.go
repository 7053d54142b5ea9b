package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/config"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers/dedust"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSwapConfigLoader_Defaults(t *testing.T) {
	loader := config.NewSwapConfigLoader()

	swapperConfig, factory, err := loader.ConvertToRouterTypes(config.DefaultSwapConfig())
	assert.NoError(t, err)
	assert.Equal(t, uint32(100), swapperConfig.SlippageBps)
	assert.Equal(t, "500000000", swapperConfig.GasReserve.String())
	assert.Equal(t, uint64(0), swapperConfig.QueryID)
	assert.Equal(t, swapmsg.PoolVolatile, swapperConfig.PoolType)
	assert.Equal(t, dedust.MainnetFactory().String(), factory.String())
}

func TestSwapConfigLoader_LoadTOML(t *testing.T) {
	path := writeFile(t, "swap.toml", `
[swap]
slippage_bps = 50
gas_reserve = "0.25"
query_id = 42
pool_type = "stable"
`)
	loader := config.NewSwapConfigLoader()

	swapConfig, err := loader.LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, dedust.MainnetFactoryAddress, swapConfig.Swap.FactoryAddress)

	swapperConfig, _, err := loader.ConvertToRouterTypes(swapConfig)
	assert.NoError(t, err)
	assert.Equal(t, uint32(50), swapperConfig.SlippageBps)
	assert.Equal(t, "250000000", swapperConfig.GasReserve.String())
	assert.Equal(t, uint64(42), swapperConfig.QueryID)
	assert.Equal(t, swapmsg.PoolStable, swapperConfig.PoolType)
}

func TestSwapConfigLoader_LoadJSON(t *testing.T) {
	path := writeFile(t, "swap.json", `{"swap":{"slippage_bps":300,"gas_reserve":"1"}}`)
	loader := config.NewSwapConfigLoader()

	swapConfig, err := loader.LoadFromFile(path)
	assert.NoError(t, err)

	swapperConfig, _, err := loader.ConvertToRouterTypes(swapConfig)
	assert.NoError(t, err)
	assert.Equal(t, uint32(300), swapperConfig.SlippageBps)
	assert.Equal(t, "1000000000", swapperConfig.GasReserve.String())
	assert.Equal(t, swapmsg.PoolVolatile, swapperConfig.PoolType)
}

func TestSwapConfigLoader_Invalid(t *testing.T) {
	loader := config.NewSwapConfigLoader()

	cases := map[string]config.SwapSection{
		"slippage above 100%": {SlippageBps: 10_001, GasReserve: "0.5"},
		"bad gas reserve":     {SlippageBps: 100, GasReserve: "half"},
		"negative gas":        {SlippageBps: 100, GasReserve: "-0.5"},
		"bad pool type":       {SlippageBps: 100, GasReserve: "0.5", PoolType: "weighted"},
		"bad factory":         {SlippageBps: 100, GasReserve: "0.5", FactoryAddress: "factory"},
	}
	for name, section := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := loader.ConvertToRouterTypes(&config.SwapConfig{Swap: section})
			assert.Error(t, err)
		})
	}

	_, _, err := loader.ConvertToRouterTypes(nil)
	assert.Error(t, err)

	_, err = loader.LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = loader.LoadFromFile(writeFile(t, "broken.toml", "[swap\nslippage_bps = "))
	assert.Error(t, err)
}
