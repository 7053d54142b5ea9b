package router

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
)

// NativeDecimals is the number of decimals of TON
const NativeDecimals int32 = 9

// decimalText matches plain decimal notation: digits with an optional fraction, no sign or exponent
var decimalText = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// isDecimalText reports whether text is a plain decimal number with at least one digit
func isDecimalText(text string) bool {
	return decimalText.MatchString(text) && strings.ContainsAny(text, "0123456789")
}

// ParseUnits converts a human readable amount like "1.5" into base units with the given decimals.
// Only plain decimal notation is accepted, signs and exponents are rejected,
// as are amounts with more fractional digits than decimals.
func ParseUnits(text string, decimals int32) (*big.Int, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ".")
	if text == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrInvalidAmount, decimals)
	}

	if !isDecimalText(text) {
		return nil, fmt.Errorf("%w: %q is not a plain decimal number", ErrInvalidAmount, text)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, text)
	}

	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, text, decimals)
	}
	return shifted.BigInt(), nil
}

// FormatUnits converts base units into a human readable amount without trailing zeros
func FormatUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

// parseAddress parses a user friendly or raw TON address
func parseAddress(text string) (*address.Address, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	addr, err := address.ParseAddr(text)
	if err != nil {
		addr, err = address.ParseRawAddr(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, text)
		}
	}
	return addr, nil
}

// decimalsOrDefault returns the decimals pointed to or the native decimals when unset
func decimalsOrDefault(decimals *int32) int32 {
	if decimals == nil {
		return NativeDecimals
	}
	return *decimals
}
