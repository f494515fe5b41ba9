// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/hyperledger-labs/web3-node
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package currency

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hyperledger-labs/web3-node"
)

const (
	// ETHSymbol is the symbol for ethereum's native currency.
	ETHSymbol = "ETH"

	// ETHDecimals is the number of decimal places of the smallest unit (wei)
	// in the ETH representation.
	ETHDecimals uint8 = 18

	placesToRound = 6

	// maxIntegerDigits bounds the integer part of a parsed amount. It is well
	// above the 78 digits of the largest uint256 in the smallest unit.
	maxIntegerDigits = 60
	// maxFractionDigits bounds the fractional part of a parsed amount.
	maxFractionDigits = 80
)

// decimalPattern matches plain decimal strings with an optional leading minus
// sign. Exponents, a plus sign, and whitespace are not accepted.
var decimalPattern = regexp.MustCompile(`^-?([0-9]+(\.[0-9]+)?|\.[0-9]+)$`)

// Sentinel errors returned by Parse.
var (
	ErrInvalidDecimal = errors.New("invalid decimal string")
	ErrNegative       = errors.New("amount is negative")
	ErrTooPrecise     = errors.New("amount is finer than the smallest unit")
)

// ETH is the native currency of the ethereum compatible chains.
var ETH = New(ETHSymbol, ETHDecimals)

// currency converts amounts using a fixed number of decimals.
type currency struct {
	symbol     string
	decimals   uint8
	multiplier decimal.Decimal
}

// New returns a currency with the given symbol and number of decimals.
func New(symbol string, decimals uint8) web3.Currency {
	return currency{
		symbol:     symbol,
		decimals:   decimals,
		multiplier: decimal.New(1, int32(decimals)),
	}
}

func (c currency) Symbol() string  { return c.symbol }
func (c currency) Decimals() uint8 { return c.decimals }

// Parse parses the given decimal string and returns the amount in the
// smallest unit. Only plain decimal notation is accepted, such as "1.5" or
// ".5". Exponent forms and a leading plus sign are rejected.
//
// The conversion is exact: amounts with a fractional part in the smallest unit
// are rejected instead of being rounded.
func (c currency) Parse(input string) (*big.Int, error) {
	if err := ValidateAmount(input); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(input)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDecimal, err.Error())
	}
	amountBaseUnit := amount.Mul(c.multiplier)
	if !amountBaseUnit.IsInteger() {
		return nil, errors.Wrapf(ErrTooPrecise, "%s allows %d decimals", c.symbol, c.decimals)
	}
	return amountBaseUnit.BigInt(), nil
}

// ValidateAmount checks that the input is a non negative amount in plain
// decimal notation, without knowing the decimals of the currency. Amounts
// that pass can still be rejected by Parse as too precise.
func ValidateAmount(input string) error {
	if !decimalPattern.MatchString(input) {
		return errors.Wrapf(ErrInvalidDecimal, "%q is not a plain decimal number", input)
	}
	intPart, fracPart, _ := strings.Cut(strings.TrimPrefix(input, "-"), ".")
	if len(intPart) > maxIntegerDigits || len(fracPart) > maxFractionDigits {
		return errors.Wrapf(ErrInvalidDecimal, "more than %d integer or %d fractional digits",
			maxIntegerDigits, maxFractionDigits)
	}
	if strings.HasPrefix(input, "-") {
		return errors.WithStack(ErrNegative)
	}
	return nil
}

// Format converts the amount in the smallest unit to a decimal string without
// loss of precision. Trailing zeros are dropped.
func (c currency) Format(input *big.Int) string {
	if input == nil {
		return "0"
	}
	return decimal.NewFromBigInt(input, -int32(c.decimals)).String()
}

// Print converts the amount in the smallest unit to a decimal string rounded
// off to 6 decimal places for visual representation.
func (c currency) Print(input *big.Int) string {
	if input == nil {
		input = new(big.Int)
	}
	return decimal.NewFromBigInt(input, -int32(c.decimals)).StringFixedBank(placesToRound)
}

// EtherToWei converts an amount in ether to wei.
func EtherToWei(ether string) (*big.Int, error) {
	return ETH.Parse(ether)
}

// WeiToEther converts an amount in wei to ether.
func WeiToEther(wei *big.Int) string {
	return ETH.Format(wei)
}
