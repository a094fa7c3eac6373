// Package currency converts between the contract's smallest monetary unit
// (wei) and the two display representations the dashboard offers: a decimal
// native-token amount and an INR amount at a fixed exchange rate.
//
// Every function here is pure; conversions never touch the stored values.
package currency

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/chitpool/chitpool/pkg/models"
)

// DefaultINRRate is the fixed INR-per-native-token rate the contract's views
// and the dashboard both assume.
const DefaultINRRate int64 = 500000

// NativeSymbol is the display symbol for the base token.
const NativeSymbol = "ETH"

var weiPerToken = new(big.Int).SetUint64(params.Ether)

// WeiToDecimal renders a wei amount as a decimal native-token string with
// trailing zeros trimmed, e.g. 10000000000000000 -> "0.01".
func WeiToDecimal(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(wei, weiPerToken, rem)

	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := fmt.Sprintf("%018s", rem.String())
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// DecimalToWei parses a decimal native-token string into wei. At most 18
// fractional digits are accepted, matching the token's precision.
func DecimalToWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("amount %q has more than 18 fractional digits", s)
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok || wholeInt.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	wei := new(big.Int).Mul(wholeInt, weiPerToken)
	if frac != "" {
		// Pad to 18 digits so "01" means 0.01, not 1 wei.
		padded := frac + strings.Repeat("0", 18-len(frac))
		fracInt, ok := new(big.Int).SetString(padded, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
		wei.Add(wei, fracInt)
	}
	return wei, nil
}

// WeiToINR converts a wei amount to INR at the given rate, rendered with two
// decimal places. 0.01 native units at rate 500000 is always "5000.00".
func WeiToINR(wei *big.Int, rate int64) string {
	if wei == nil {
		return "0.00"
	}
	inr := new(big.Rat).SetInt(wei)
	inr.Mul(inr, new(big.Rat).SetInt64(rate))
	inr.Quo(inr, new(big.Rat).SetInt(weiPerToken))
	return inr.FloatString(2)
}

// Format renders a wei amount under the selected display currency. The lens
// changes only the rendered string, never the input.
func Format(wei *big.Int, cur models.DisplayCurrency, rate int64) string {
	if cur == models.CurrencyINR {
		return WeiToINR(wei, rate) + " INR"
	}
	return WeiToDecimal(wei) + " " + NativeSymbol
}
