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

package ethereum

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// DefaultFormatChars is the number of characters retained at each end of the
// address by FormatAddress.
const DefaultFormatChars = 4

// Errors returned when parsing addresses.
var (
	ErrAddrFormat   = errors.New("address should be 20 bytes, hex encoded and optionally prefixed by 0x")
	ErrAddrChecksum = errors.New("mixed case address does not match its checksum")
)

var (
	hexAddrPattern   = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)
	mixedCasePattern = regexp.MustCompile(`([A-F].*[a-f])|([a-f].*[A-F])`)
)

// ParseAddress parses the ethereum address from the given string. It should be
// the hexadecimal representation of the address, optionally prefixed by "0x".
//
// All lower case and all upper case forms are accepted as is. A mixed case
// address is treated as EIP-55 checksummed and rejected if the checksum does
// not match.
func ParseAddress(s string) (common.Address, error) {
	if !hexAddrPattern.MatchString(s) {
		return common.Address{}, errors.WithStack(ErrAddrFormat)
	}
	addr := common.HexToAddress(s)

	hexPart := strings.TrimPrefix(s, "0x")
	if mixedCasePattern.MatchString(hexPart) && addr.Hex()[2:] != hexPart {
		return common.Address{}, errors.WithStack(ErrAddrChecksum)
	}
	return addr, nil
}

// IsValidAddress reports whether the string is a valid ethereum address.
func IsValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// FormatAddress truncates the address for display, retaining the "0x" prefix
// and chars characters at each end. Non positive chars selects
// DefaultFormatChars. Addresses too short to be truncated are returned as is.
func FormatAddress(addr string, chars int) string {
	if chars <= 0 {
		chars = DefaultFormatChars
	}
	if len(addr) <= 2*chars+2 {
		return addr
	}
	return addr[:chars+2] + "..." + addr[len(addr)-chars:]
}
