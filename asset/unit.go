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
	"errors"
	"fmt"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// MaxAssetNameLength is the maximum length of an asset name in bytes
const MaxAssetNameLength = 32

var ErrInvalidUnit = errors.New("invalid asset unit")

// Unit is a strictly parsed asset unit
type Unit struct {
	PolicyId lcommon.Blake2b224
	Name     []byte
}

// ParseUnit parses a hex asset unit into its policy ID and raw asset name
func ParseUnit(unit string) (Unit, error) {
	if len(unit) < PolicyIdHexLength {
		return Unit{}, fmt.Errorf(
			"%w: length %d shorter than policy ID",
			ErrInvalidUnit,
			len(unit),
		)
	}
	if len(unit)%2 != 0 {
		return Unit{}, fmt.Errorf("%w: odd length", ErrInvalidUnit)
	}
	policyId, err := hex.DecodeString(unit[:PolicyIdHexLength])
	if err != nil {
		return Unit{}, fmt.Errorf("%w: policy ID: %w", ErrInvalidUnit, err)
	}
	name, err := hex.DecodeString(unit[PolicyIdHexLength:])
	if err != nil {
		return Unit{}, fmt.Errorf("%w: asset name: %w", ErrInvalidUnit, err)
	}
	if len(name) > MaxAssetNameLength {
		return Unit{}, fmt.Errorf(
			"%w: asset name length %d exceeds %d",
			ErrInvalidUnit,
			len(name),
			MaxAssetNameLength,
		)
	}
	return Unit{
		PolicyId: lcommon.NewBlake2b224(policyId),
		Name:     name,
	}, nil
}

// String returns the hex unit
func (u Unit) String() string {
	return u.PolicyId.String() + hex.EncodeToString(u.Name)
}

// Fingerprint returns the CIP-14 asset fingerprint
func (u Unit) Fingerprint() string {
	return lcommon.NewAssetFingerprint(u.PolicyId.Bytes(), u.Name).String()
}
