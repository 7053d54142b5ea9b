// Package brokers defines interfaces and common types for DEX broker integrations.
// The swapper only talks to the chain through these interfaces, for now the only
// implementation is DeDust over a TON liteserver connection.
package brokers

import (
	"context"
	"math/big"

	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
	"github.com/xssnick/tonutils-go/address"
)

// Account statuses as reported by the chain.
const (
	AccountStatusActive   = "ACTIVE"
	AccountStatusUninit   = "UNINIT"
	AccountStatusFrozen   = "FROZEN"
	AccountStatusNonExist = "NON_EXIST"
)

// AccountState is the part of an account state the swapper cares about.
type AccountState struct {
	// Status is one of the AccountStatus constants
	Status string
}

// IsActive reports whether the account has deployed code and can process messages.
func (s *AccountState) IsActive() bool {
	return s != nil && s.Status == AccountStatusActive
}

// ChainClient reads blockchain state.
type ChainClient interface {
	// LastSeqno returns the seqno of the latest masterchain block
	LastSeqno(ctx context.Context) (uint32, error)

	// AccountState returns the state of addr at the masterchain block with the given seqno
	AccountState(ctx context.Context, seqno uint32, addr *address.Address) (*AccountState, error)
}

// ContractResolver resolves DEX contract addresses through the factory.
type ContractResolver interface {
	// PoolAddress returns the pool address for the asset pair and pool type
	PoolAddress(ctx context.Context, poolType swapmsg.PoolType, assets [2]swapmsg.Asset) (*address.Address, error)

	// VaultAddress returns the vault that accepts the given asset
	VaultAddress(ctx context.Context, asset swapmsg.Asset) (*address.Address, error)
}

// PoolEstimator queries pools for expected swap output.
type PoolEstimator interface {
	// EstimateSwapOut returns the estimated output of swapping amountIn of assetIn in the pool
	EstimateSwapOut(ctx context.Context, pool *address.Address, assetIn swapmsg.Asset, amountIn *big.Int) (*SwapEstimate, error)
}

// SwapEstimate contains the pool answer to an estimation query.
type SwapEstimate struct {
	AssetOut  swapmsg.Asset
	AmountOut *big.Int
	TradeFee  *big.Int
}

// DexBroker is everything the swapper needs from a DEX integration.
type DexBroker interface {
	ChainClient
	ContractResolver
	PoolEstimator

	// GetBrokerType returns the type of broker (e.g., "dedust")
	GetBrokerType() string
}
