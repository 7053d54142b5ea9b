package swapmsg

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// NativeAsset returns the TON asset.
func NativeAsset() Asset {
	return Asset{Type: AssetNative}
}

// JettonAsset returns the asset of the jetton with the given root address.
func JettonAsset(root *address.Address) Asset {
	return Asset{
		Type:    AssetJetton,
		Address: root,
	}
}

// NewSwapStep creates a single hop, limit may be nil.
func NewSwapStep(pool *address.Address, limit *big.Int) *SwapStep {
	return &SwapStep{
		PoolAddress: pool,
		Limit:       limit,
	}
}

// Then appends a hop to the end of the route and returns the head, so routes read in order:
//
//	NewSwapStep(a, nil).Then(NewSwapStep(b, minOut))
func (s *SwapStep) Then(next *SwapStep) *SwapStep {
	last := s
	for last.Next != nil {
		last = last.Next
	}
	last.Next = next
	return s
}

// Equal reports whether two assets are the same.
func (a Asset) Equal(other Asset) bool {
	if a.Type != other.Type {
		return false
	}
	if a.Type == AssetNative {
		return true
	}
	return sameAddress(a.Address, other.Address)
}

func (a Asset) String() string {
	if a.Type == AssetJetton && a.Address != nil {
		return "jetton:" + a.Address.String()
	}
	return a.Type.String()
}

// PackAsset serializes an asset as used by the factory and pool get-methods.
func PackAsset(asset Asset) (*cell.Cell, error) {
	b := cell.BeginCell()
	switch asset.Type {
	case AssetNative:
		if err := b.StoreUInt(uint64(AssetNative), 4); err != nil {
			return nil, &EncodingError{Field: "asset", Err: err}
		}
	case AssetJetton:
		if asset.Address == nil {
			return nil, &EncodingError{Field: "jetton asset", Err: errMissingAddress}
		}
		if err := b.StoreUInt(uint64(AssetJetton), 4); err != nil {
			return nil, &EncodingError{Field: "asset", Err: err}
		}
		if err := b.StoreInt(int64(asset.Address.Workchain()), 8); err != nil {
			return nil, &EncodingError{Field: "jetton workchain", Err: err}
		}
		if err := b.StoreSlice(asset.Address.Data(), 256); err != nil {
			return nil, &EncodingError{Field: "jetton address", Err: err}
		}
	default:
		return nil, &EncodingError{Field: "asset", Err: fmt.Errorf("unknown asset type %d", asset.Type)}
	}
	return b.EndCell(), nil
}

// LoadAsset reads an asset written by PackAsset or returned by a get-method.
func LoadAsset(s *cell.Slice) (Asset, error) {
	tag, err := s.LoadUInt(4)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to load asset tag: %w", err)
	}

	switch AssetType(tag) {
	case AssetNative:
		return NativeAsset(), nil
	case AssetJetton:
		workchain, err := s.LoadInt(8)
		if err != nil {
			return Asset{}, fmt.Errorf("failed to load jetton workchain: %w", err)
		}
		data, err := s.LoadSlice(256)
		if err != nil {
			return Asset{}, fmt.Errorf("failed to load jetton address: %w", err)
		}
		return JettonAsset(address.NewAddress(0, byte(workchain), data)), nil
	default:
		return Asset{}, fmt.Errorf("unsupported asset tag %d", tag)
	}
}

func sameAddress(a, b *address.Address) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Workchain() == b.Workchain() && bytes.Equal(a.Data(), b.Data())
}
