package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xssnick/tonutils-go/address"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/brokers/dedust"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

// SwapConfigLoader loads the swap defaults and converts them to the router types used by the swapper.
type SwapConfigLoader struct{}

// NewSwapConfigLoader creates a new swap config loader.
func NewSwapConfigLoader() *SwapConfigLoader {
	return &SwapConfigLoader{}
}

// DefaultSwapConfig returns 1% slippage, 0.5 TON gas reserve, the mainnet factory and volatile pools.
func DefaultSwapConfig() *SwapConfig {
	return &SwapConfig{
		Swap: SwapSection{
			SlippageBps:    brokers.DefaultSlippageBps,
			GasReserve:     "0.5",
			FactoryAddress: dedust.MainnetFactoryAddress,
			PoolType:       "volatile",
		},
	}
}

// LoadFromFile loads swap defaults from a TOML or JSON file.
// Keys missing from the file keep their default values.
func (l *SwapConfigLoader) LoadFromFile(filePath string) (*SwapConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read swap config file: %w", err)
	}

	swapConfig := DefaultSwapConfig()

	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, swapConfig); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, swapConfig); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	return swapConfig, nil
}

// ConvertToRouterTypes converts a SwapConfig to the router.SwapperConfig type and the factory address.
func (l *SwapConfigLoader) ConvertToRouterTypes(config *SwapConfig) (router.SwapperConfig, *address.Address, error) {
	if config == nil {
		return router.SwapperConfig{}, nil, fmt.Errorf("no swap config")
	}
	swap := config.Swap

	if swap.SlippageBps > brokers.MaxSlippageBps {
		return router.SwapperConfig{}, nil, fmt.Errorf("slippage_bps must be at most %d", brokers.MaxSlippageBps)
	}

	gasReserve, err := router.ParseUnits(swap.GasReserve, router.NativeDecimals)
	if err != nil {
		return router.SwapperConfig{}, nil, fmt.Errorf("invalid gas_reserve: %w", err)
	}

	var poolType swapmsg.PoolType
	switch strings.ToLower(strings.TrimSpace(swap.PoolType)) {
	case "", "volatile":
		poolType = swapmsg.PoolVolatile
	case "stable":
		poolType = swapmsg.PoolStable
	default:
		return router.SwapperConfig{}, nil, fmt.Errorf("unknown pool_type %q", swap.PoolType)
	}

	factory := dedust.MainnetFactory()
	if swap.FactoryAddress != "" {
		factory, err = address.ParseAddr(swap.FactoryAddress)
		if err != nil {
			return router.SwapperConfig{}, nil, fmt.Errorf("invalid factory_address: %w", err)
		}
	}

	return router.SwapperConfig{
		SlippageBps: swap.SlippageBps,
		GasReserve:  gasReserve,
		QueryID:     swap.QueryID,
		PoolType:    poolType,
	}, factory, nil
}

// InitializeSwapper creates a fully initialized Swapper backed by a DeDust broker.
// An empty configPath uses DefaultSwapConfig.
func (l *SwapConfigLoader) InitializeSwapper(configPath string, api dedust.LiteAPI) (*router.Swapper, error) {
	swapConfig := DefaultSwapConfig()
	if configPath != "" {
		var err error
		swapConfig, err = l.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load swap config: %w", err)
		}
	}

	swapperConfig, factory, err := l.ConvertToRouterTypes(swapConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to convert swap config: %w", err)
	}

	broker := dedust.NewLiteBroker(api, factory)
	return router.NewSwapper(broker, swapperConfig)
}
