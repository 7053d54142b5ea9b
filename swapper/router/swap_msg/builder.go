package swapmsg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ErrEncoding is matched by every error returned from the builders.
var ErrEncoding = errors.New("encoding error")

var (
	errMissingAddress = errors.New("address is required")
	errNegativeAmount = errors.New("amount must not be negative")
)

// EncodingError reports the field that could not be serialized.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// PackSwapStep serializes a swap step and, recursively, every step after it.
func PackSwapStep(step *SwapStep) (*cell.Cell, error) {
	if step == nil {
		return nil, &EncodingError{Field: "swap step", Err: errors.New("step is nil")}
	}

	b := cell.BeginCell()
	if err := storeRequiredAddr(b, "pool address", step.PoolAddress); err != nil {
		return nil, err
	}
	if err := storeStepParams(b, step.Limit, step.Next); err != nil {
		return nil, err
	}
	return b.EndCell(), nil
}

// PackSwapParams serializes swap params into a single cell with up to two references.
func PackSwapParams(params SwapParams) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreUInt(uint64(params.Deadline), 32); err != nil {
		return nil, &EncodingError{Field: "deadline", Err: err}
	}
	if err := b.StoreAddr(params.RecipientAddress); err != nil {
		return nil, &EncodingError{Field: "recipient address", Err: err}
	}
	if err := b.StoreAddr(params.ReferralAddress); err != nil {
		return nil, &EncodingError{Field: "referral address", Err: err}
	}
	if err := b.StoreMaybeRef(params.FulfillPayload); err != nil {
		return nil, &EncodingError{Field: "fulfill payload", Err: err}
	}
	if err := b.StoreMaybeRef(params.RejectPayload); err != nil {
		return nil, &EncodingError{Field: "reject payload", Err: err}
	}
	return b.EndCell(), nil
}

// BuildNativeSwapBody creates the body of a swap request sent to the native vault.
// The swap params reference is always present.
func BuildNativeSwapBody(req NativeSwapRequest) (*cell.Cell, error) {
	params := SwapParams{}
	if req.SwapParams != nil {
		params = *req.SwapParams
	}
	paramsCell, err := PackSwapParams(params)
	if err != nil {
		return nil, err
	}

	b := cell.BeginCell()
	if err := b.StoreUInt(uint64(OpVaultNativeSwap), 32); err != nil {
		return nil, &EncodingError{Field: "op", Err: err}
	}
	if err := b.StoreUInt(req.QueryID, 64); err != nil {
		return nil, &EncodingError{Field: "query id", Err: err}
	}
	if err := storeCoins(b, "amount", req.Amount); err != nil {
		return nil, err
	}
	if err := storeRequiredAddr(b, "pool address", req.PoolAddress); err != nil {
		return nil, err
	}
	if err := storeStepParams(b, req.Limit, req.Next); err != nil {
		return nil, err
	}
	if err := b.StoreRef(paramsCell); err != nil {
		return nil, &EncodingError{Field: "swap params", Err: err}
	}
	return b.EndCell(), nil
}

// BuildJettonTransferBody creates a TEP-74 transfer body for a jetton wallet.
func BuildJettonTransferBody(req JettonTransferRequest) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreUInt(uint64(OpJettonTransfer), 32); err != nil {
		return nil, &EncodingError{Field: "op", Err: err}
	}
	if err := b.StoreUInt(req.QueryID, 64); err != nil {
		return nil, &EncodingError{Field: "query id", Err: err}
	}
	if err := storeCoins(b, "amount", req.Amount); err != nil {
		return nil, err
	}
	if err := storeRequiredAddr(b, "destination", req.Destination); err != nil {
		return nil, err
	}
	if err := b.StoreAddr(req.ResponseAddress); err != nil {
		return nil, &EncodingError{Field: "response address", Err: err}
	}
	if err := b.StoreMaybeRef(req.CustomPayload); err != nil {
		return nil, &EncodingError{Field: "custom payload", Err: err}
	}
	if err := storeCoins(b, "forward amount", req.ForwardAmount); err != nil {
		return nil, err
	}
	if err := b.StoreMaybeRef(req.ForwardPayload); err != nil {
		return nil, &EncodingError{Field: "forward payload", Err: err}
	}
	return b.EndCell(), nil
}

// ToBase64BOC serializes the cell as a bag of cells and encodes it with standard base64,
// the form TON Connect expects in a message payload.
func ToBase64BOC(c *cell.Cell) string {
	return base64.StdEncoding.EncodeToString(c.ToBOC())
}

// storeStepParams writes the part of a swap step that follows the pool address:
// the given_in kind bit, the limit and the optional next step.
func storeStepParams(b *cell.Builder, limit *big.Int, next *SwapStep) error {
	if err := b.StoreUInt(0, 1); err != nil {
		return &EncodingError{Field: "swap kind", Err: err}
	}
	if err := storeCoins(b, "limit", limit); err != nil {
		return err
	}

	var nextCell *cell.Cell
	if next != nil {
		var err error
		nextCell, err = PackSwapStep(next)
		if err != nil {
			return err
		}
	}
	if err := b.StoreMaybeRef(nextCell); err != nil {
		return &EncodingError{Field: "next step", Err: err}
	}
	return nil
}

// storeCoins writes a Coins value, nil is written as zero.
func storeCoins(b *cell.Builder, field string, amount *big.Int) error {
	if amount == nil {
		amount = new(big.Int)
	}
	if amount.Sign() < 0 {
		return &EncodingError{Field: field, Err: errNegativeAmount}
	}
	if err := b.StoreBigCoins(amount); err != nil {
		return &EncodingError{Field: field, Err: err}
	}
	return nil
}

func storeRequiredAddr(b *cell.Builder, field string, addr *address.Address) error {
	if addr == nil {
		return &EncodingError{Field: field, Err: errMissingAddress}
	}
	if err := b.StoreAddr(addr); err != nil {
		return &EncodingError{Field: field, Err: err}
	}
	return nil
}
