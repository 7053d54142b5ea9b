// Package dedust provides DeDust-specific implementations for the broker interface.
package dedust

import (
	"math"
	"time"

	"github.com/xssnick/tonutils-go/address"
)

const (
	// BrokerType is the broker identifier of DeDust
	BrokerType = "dedust"

	// MainnetFactoryAddress is the DeDust factory on mainnet
	MainnetFactoryAddress = "EQBfBWT7X2BHg9tXAxzhz2aKiNTU1tpt5NsiK0uSDW_YAJ67"
)

// Get-method names of the DeDust contracts.
const (
	getPoolAddressMethod  = "get_pool_address"
	getVaultAddressMethod = "get_vault_address"
	estimateSwapOutMethod = "estimate_swap_out"
)

// Masterchain block coordinates used to look up a block by seqno.
const (
	masterchainID    int32 = -1
	masterchainShard int64 = math.MinInt64
)

// headMaxAge bounds how long a masterchain head is reused between queries.
const headMaxAge = 10 * time.Second

// MainnetFactory returns the parsed mainnet factory address.
func MainnetFactory() *address.Address {
	return address.MustParseAddr(MainnetFactoryAddress)
}
