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

package utxoflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Quantity is an arbitrary-precision integer amount as delivered by the
// API. It accepts both JSON strings and JSON numbers
type Quantity string

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quantity %s: %w", string(data), err)
	}
	*q = Quantity(n.String())
	return nil
}

// Int parses the quantity, reporting false unless it is a valid
// non-negative integer
func (q Quantity) Int() (*big.Int, bool) {
	if q == "" {
		return nil, false
	}
	ret, ok := new(big.Int).SetString(string(q), 10)
	if !ok || ret.Sign() < 0 {
		return nil, false
	}
	return ret, true
}

// Amount is a quantity of a single asset unit
type Amount struct {
	Unit     string   `json:"unit"`
	Quantity Quantity `json:"quantity"`
}

// UTxO is a transaction input or output
type UTxO struct {
	Address string   `json:"address"`
	Amount  []Amount `json:"amount"`
}

// UnitQuantity is the per-unit breakdown of a flow
type UnitQuantity struct {
	Unit     string   `json:"unit"`
	Quantity *big.Int `json:"quantity"`
}

// Flow is value attributed from one input address to one output address
type Flow struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	TotalQuantity *big.Int       `json:"total_quantity"`
	Units         []UnitQuantity `json:"units"`
}

// Quantity returns the flow quantity for a single unit
func (f Flow) Quantity(unit string) *big.Int {
	for _, uq := range f.Units {
		if uq.Unit == unit {
			return new(big.Int).Set(uq.Quantity)
		}
	}
	return new(big.Int)
}
