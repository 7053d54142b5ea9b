package swapmsg

import (
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Operation codes of the message bodies built by this package.
const (
	// OpVaultNativeSwap asks the native vault to swap the attached TON.
	OpVaultNativeSwap uint32 = 0xea06185d
	// OpJettonTransfer is the TEP-74 jetton wallet transfer.
	OpJettonTransfer uint32 = 0x0f8a7ea5
)

// SwapStep is one hop of a swap route.
type SwapStep struct {
	// PoolAddress is the pool the hop is executed in
	PoolAddress *address.Address
	// Limit is the minimum output of the hop, nil means 0 (no limit)
	Limit *big.Int
	// Next is the following hop, nil ends the route
	Next *SwapStep
}

// SwapParams contains auxiliary swap metadata. The zero value is valid and encodes as an
// "empty" params cell: no deadline, no recipient override, no referral, no payloads.
type SwapParams struct {
	// Deadline is a unix timestamp after which the swap is rejected, 0 disables it
	Deadline uint32
	// RecipientAddress overrides the receiver of the swap output
	RecipientAddress *address.Address
	// ReferralAddress receives the referral share of the fee
	ReferralAddress *address.Address
	// FulfillPayload is forwarded with the output on success
	FulfillPayload *cell.Cell
	// RejectPayload is forwarded with the refund on failure
	RejectPayload *cell.Cell
}

// NativeSwapRequest contains everything needed to build a native vault swap body.
type NativeSwapRequest struct {
	// Amount is the amount of nanotons to swap
	Amount *big.Int
	// PoolAddress is the pool of the first hop
	PoolAddress *address.Address
	QueryID     uint64
	// Limit is the minimum output of the first hop, nil means 0
	Limit *big.Int
	// SwapParams may be nil, an empty params cell is attached in that case
	SwapParams *SwapParams
	// Next is the second hop of a multi-hop route
	Next *SwapStep
}

// JettonTransferRequest contains the fields of a TEP-74 jetton transfer.
type JettonTransferRequest struct {
	QueryID uint64
	// Amount is the jetton amount in the smallest units
	Amount *big.Int
	// Destination is the owner that receives the jettons (for swaps: the jetton vault)
	Destination *address.Address
	// ResponseAddress receives the excess TON, nil writes addr_none
	ResponseAddress *address.Address
	CustomPayload   *cell.Cell
	// ForwardAmount is the TON amount forwarded to the destination, nil means 0
	ForwardAmount  *big.Int
	ForwardPayload *cell.Cell
}

// AssetType is the tag of a DeDust asset.
type AssetType uint8

const (
	AssetNative AssetType = 0
	AssetJetton AssetType = 1
)

func (t AssetType) String() string {
	switch t {
	case AssetNative:
		return "native"
	case AssetJetton:
		return "jetton"
	default:
		return "unknown"
	}
}

// Asset identifies a DeDust asset: TON itself or a jetton by its root (master) address.
type Asset struct {
	Type    AssetType
	Address *address.Address
}

// PoolType selects the pool curve.
type PoolType uint8

const (
	PoolVolatile PoolType = 0
	PoolStable   PoolType = 1
)
