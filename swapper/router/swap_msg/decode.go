package swapmsg

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// JettonTransferMessage is the TL-B view of a jetton transfer body.
type JettonTransferMessage struct {
	_                   tlb.Magic        `tlb:"#0f8a7ea5"`
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	Destination         *address.Address `tlb:"addr"`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
	ForwardTonAmount    tlb.Coins        `tlb:"."`
	ForwardPayload      *cell.Cell       `tlb:"maybe ^"`
}

// DecodeJettonTransferBody parses a body produced by BuildJettonTransferBody.
func DecodeJettonTransferBody(c *cell.Cell) (*JettonTransferMessage, error) {
	var msg JettonTransferMessage
	if err := tlb.LoadFromCell(&msg, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to parse jetton transfer: %w", err)
	}
	return &msg, nil
}

// DecodeSwapStep parses a cell produced by PackSwapStep back into a route.
// An absent limit is returned as 0.
func DecodeSwapStep(c *cell.Cell) (*SwapStep, error) {
	s := c.BeginParse()
	pool, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load pool address: %w", err)
	}
	step := &SwapStep{PoolAddress: pool}
	step.Limit, step.Next, err = loadStepParams(s)
	if err != nil {
		return nil, err
	}
	return step, nil
}

// DecodeSwapParams parses a cell produced by PackSwapParams.
func DecodeSwapParams(c *cell.Cell) (*SwapParams, error) {
	s := c.BeginParse()

	deadline, err := s.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("failed to load deadline: %w", err)
	}
	recipient, err := loadOptionalAddr(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient address: %w", err)
	}
	referral, err := loadOptionalAddr(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral address: %w", err)
	}
	fulfill, err := loadMaybeCell(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load fulfill payload: %w", err)
	}
	reject, err := loadMaybeCell(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load reject payload: %w", err)
	}

	return &SwapParams{
		Deadline:         uint32(deadline),
		RecipientAddress: recipient,
		ReferralAddress:  referral,
		FulfillPayload:   fulfill,
		RejectPayload:    reject,
	}, nil
}

// DecodeNativeSwapBody parses a body produced by BuildNativeSwapBody.
// SwapParams is always set in the result since the reference is mandatory.
func DecodeNativeSwapBody(c *cell.Cell) (*NativeSwapRequest, error) {
	s := c.BeginParse()

	op, err := s.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("failed to load op: %w", err)
	}
	if uint32(op) != OpVaultNativeSwap {
		return nil, fmt.Errorf("unexpected op %#x", op)
	}
	queryID, err := s.LoadUInt(64)
	if err != nil {
		return nil, fmt.Errorf("failed to load query id: %w", err)
	}
	amount, err := s.LoadBigCoins()
	if err != nil {
		return nil, fmt.Errorf("failed to load amount: %w", err)
	}
	pool, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load pool address: %w", err)
	}
	limit, next, err := loadStepParams(s)
	if err != nil {
		return nil, err
	}
	paramsCell, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load swap params ref: %w", err)
	}
	params, err := DecodeSwapParams(paramsCell)
	if err != nil {
		return nil, err
	}

	return &NativeSwapRequest{
		Amount:      amount,
		PoolAddress: pool,
		QueryID:     queryID,
		Limit:       limit,
		SwapParams:  params,
		Next:        next,
	}, nil
}

func loadStepParams(s *cell.Slice) (*big.Int, *SwapStep, error) {
	kind, err := s.LoadUInt(1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load swap kind: %w", err)
	}
	if kind != 0 {
		return nil, nil, fmt.Errorf("unsupported swap kind %d", kind)
	}
	limit, err := s.LoadBigCoins()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load limit: %w", err)
	}
	nextCell, err := loadMaybeCell(s)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load next step: %w", err)
	}
	if nextCell == nil {
		return limit, nil, nil
	}
	next, err := DecodeSwapStep(nextCell)
	if err != nil {
		return nil, nil, err
	}
	return limit, next, nil
}

func loadOptionalAddr(s *cell.Slice) (*address.Address, error) {
	addr, err := s.LoadAddr()
	if err != nil {
		return nil, err
	}
	if addr == nil || addr.Type() == address.NoneAddress {
		return nil, nil
	}
	return addr, nil
}

func loadMaybeCell(s *cell.Slice) (*cell.Cell, error) {
	ref, err := s.LoadMaybeRef()
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}
	return ref.ToCell()
}
