package brokers

import (
	"errors"
	"fmt"
	"math/big"
)

// MaxSlippageBps is 100% expressed in basis points.
const MaxSlippageBps = 10000

// DefaultSlippageBps is the tolerance applied when the caller does not choose one (1%).
const DefaultSlippageBps uint32 = 100

// MinOutput calculates the minimum acceptable output for an estimated amount.
// slippageBps is basis points (e.g., 100 = 1%)
// minOutput = expected * (10000 - slippageBps) / 10000, rounded down
func MinOutput(expected *big.Int, slippageBps uint32) (*big.Int, error) {
	if expected == nil {
		return nil, errors.New("expected output is missing")
	}
	if expected.Sign() < 0 {
		return nil, fmt.Errorf("expected output must not be negative: %s", expected)
	}
	if slippageBps > MaxSlippageBps {
		return nil, fmt.Errorf("slippage must be at most %d bps, got %d", MaxSlippageBps, slippageBps)
	}

	minOutput := new(big.Int).Mul(expected, big.NewInt(int64(MaxSlippageBps-slippageBps)))
	// Quo truncates toward zero which is floor for non-negative values
	return minOutput.Quo(minOutput, big.NewInt(MaxSlippageBps)), nil
}
