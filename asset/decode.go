// Copyright 2026 Blink Labs Software
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

package asset

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const (
	// PolicyIdHexLength is the length of a hex-encoded policy ID
	PolicyIdHexLength = 56

	// NativeUnit is the pseudo unit used for the chain's native currency
	NativeUnit = "lovelace"
)

// Identity is the human-displayable form of an asset unit
type Identity struct {
	Unit      string `json:"unit"`
	PolicyId  string `json:"policy_id"`
	HexName   string `json:"asset_name_hex"`
	AssetName string `json:"asset_name"`
	// DisplayName is AssetName with any CIP-67 label prefix removed
	DisplayName string `json:"display_name"`
	// Label is the CIP-67 asset name label, or 0 when none is present
	Label uint16 `json:"label,omitempty"`
}

// cip67Labels maps known CIP-67 name prefixes to their label numbers
var cip67Labels = map[string]uint16{
	"000643b0": 100,
	"000de140": 222,
	"0014df10": 333,
	"001bc280": 444,
}

// Decode splits an asset unit into its policy ID and a displayable asset
// name. A CIP-67 label is reported separately and only removed from
// DisplayName. It never fails: bytes that cannot be rendered become '_' and
// malformed hex is skipped.
func Decode(unit string) Identity {
	if unit == NativeUnit {
		return Identity{
			Unit:        unit,
			AssetName:   "ADA",
			DisplayName: "ADA",
		}
	}
	ret := Identity{Unit: unit}
	if len(unit) <= PolicyIdHexLength {
		ret.PolicyId = unit
		return ret
	}
	ret.PolicyId = unit[:PolicyIdHexLength]
	ret.HexName = unit[PolicyIdHexLength:]
	ret.AssetName = DecodeName(ret.HexName)
	ret.DisplayName = ret.AssetName
	if len(ret.HexName) >= 8 {
		if label, ok := cip67Labels[strings.ToLower(ret.HexName[:8])]; ok {
			ret.Label = label
			ret.DisplayName = DecodeName(ret.HexName[8:])
		}
	}
	return ret
}

// DecodeName renders a hex-encoded asset name as text
func DecodeName(hexName string) string {
	var sb strings.Builder
	i := 0
	// A trailing odd character is never part of a byte
	for i+1 < len(hexName) {
		b, ok := hexByte(hexName[i : i+2])
		if !ok {
			i += 2
			continue
		}
		switch {
		case b >= 0x20 && b <= 0x7e:
			sb.WriteByte(b)
			i += 2
			continue
		case b == 0x00:
			i += 2
			continue
		case b == 0x0d || b == 0x0a:
			sb.WriteByte(' ')
			i += 2
			continue
		}
		// 4-byte emoji sequences
		if b == 0xf0 && i+8 <= len(hexName) &&
			strings.EqualFold(hexName[i+2:i+4], "9f") {
			if r, ok := decodeRune(hexName[i:i+8], 4); ok {
				sb.WriteRune(r)
				i += 8
				continue
			}
		}
		if b > 0x7f {
			if n := sequenceLength(b); n > 0 && i+2*n <= len(hexName) {
				if r, ok := decodeRune(hexName[i:i+2*n], n); ok {
					sb.WriteRune(r)
					i += 2 * n
					continue
				}
			}
		}
		// Remaining control characters and undecodable bytes
		sb.WriteByte('_')
		i += 2
	}
	return strings.TrimSpace(collapseUnderscores(sb.String()))
}

func hexByte(pair string) (byte, bool) {
	var buf [1]byte
	if _, err := hex.Decode(buf[:], []byte(pair)); err != nil {
		return 0, false
	}
	return buf[0], true
}

// sequenceLength returns the UTF-8 sequence length implied by a lead byte,
// or 0 if the byte cannot start a multi-byte sequence
func sequenceLength(lead byte) int {
	switch {
	case lead&0xe0 == 0xc0:
		return 2
	case lead&0xf0 == 0xe0:
		return 3
	case lead&0xf8 == 0xf0:
		return 4
	default:
		return 0
	}
}

func decodeRune(hexSeq string, n int) (rune, bool) {
	raw, err := hex.DecodeString(hexSeq)
	if err != nil || len(raw) != n {
		return utf8.RuneError, false
	}
	r, size := utf8.DecodeRune(raw)
	if r == utf8.RuneError || size != n {
		return utf8.RuneError, false
	}
	return r, true
}

func collapseUnderscores(s string) string {
	if !strings.Contains(s, "__") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	prevUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
