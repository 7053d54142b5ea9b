package router

import (
	"errors"

	models "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/models"
	swapmsg "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/router/swap_msg"
)

var (
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrChainQuery        = errors.New("chain query failed")
	ErrContractNotActive = errors.New("contract is not active")
	ErrQuoteUnavailable  = errors.New("quote unavailable")
	ErrNotImplemented    = errors.New("not implemented")
)

// reasonFor maps an error returned inside the swapper to the reason reported to callers
func reasonFor(err error) models.FailureReason {
	switch {
	case err == nil:
		return models.ReasonNone
	case errors.Is(err, ErrInvalidAddress):
		return models.ReasonInvalidAddress
	case errors.Is(err, ErrInvalidAmount):
		return models.ReasonInvalidAmount
	case errors.Is(err, ErrContractNotActive):
		return models.ReasonContractNotActive
	case errors.Is(err, ErrQuoteUnavailable):
		return models.ReasonQuoteUnavailable
	case errors.Is(err, swapmsg.ErrEncoding):
		return models.ReasonEncodingError
	case errors.Is(err, ErrNotImplemented):
		return models.ReasonNotImplemented
	default:
		return models.ReasonRPCError
	}
}

func swapFailure(err error) models.SwapResponse {
	return models.SwapResponse{
		Success:      false,
		Reason:       reasonFor(err),
		ErrorMessage: err.Error(),
	}
}

func estimateFailure(err error) models.EstimateResponse {
	return models.EstimateResponse{
		Success:      false,
		Reason:       reasonFor(err),
		ErrorMessage: err.Error(),
	}
}
