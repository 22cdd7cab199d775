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

// Package utxoflow attributes value moving through a transaction from input
// addresses to output addresses.
//
// The attribution is a greedy first-fit: each output amount is drawn from
// input addresses in the order they first appear in the inputs. An eUTxO
// transaction admits many valid attributions and this picks one
// deterministically.
package utxoflow

import (
	"math/big"
)

// balances tracks remaining input value per address and unit, keeping
// addresses and units in first-seen order
type balances struct {
	addresses []string
	byAddress map[string]map[string]*big.Int
}

func newBalances(inputs []UTxO) *balances {
	b := &balances{
		byAddress: make(map[string]map[string]*big.Int),
	}
	for _, input := range inputs {
		units, ok := b.byAddress[input.Address]
		if !ok {
			units = make(map[string]*big.Int)
			b.byAddress[input.Address] = units
			b.addresses = append(b.addresses, input.Address)
		}
		for _, amount := range input.Amount {
			if amount.Unit == "" {
				continue
			}
			qty, ok := amount.Quantity.Int()
			if !ok {
				continue
			}
			if cur, ok := units[amount.Unit]; ok {
				cur.Add(cur, qty)
			} else {
				units[amount.Unit] = qty
			}
		}
	}
	return b
}

type flowKey struct {
	from string
	to   string
}

type flowBuilder struct {
	order []flowKey
	flows map[flowKey]*Flow
}

func (fb *flowBuilder) add(from, to, unit string, qty *big.Int) {
	key := flowKey{from: from, to: to}
	flow, ok := fb.flows[key]
	if !ok {
		flow = &Flow{
			From:          from,
			To:            to,
			TotalQuantity: new(big.Int),
		}
		fb.flows[key] = flow
		fb.order = append(fb.order, key)
	}
	flow.TotalQuantity.Add(flow.TotalQuantity, qty)
	for i := range flow.Units {
		if flow.Units[i].Unit == unit {
			flow.Units[i].Quantity.Add(flow.Units[i].Quantity, qty)
			return
		}
	}
	flow.Units = append(flow.Units, UnitQuantity{
		Unit:     unit,
		Quantity: new(big.Int).Set(qty),
	})
}

// MatchFlows attributes output amounts to input balances of the same unit
// held by other addresses. Flows are returned in creation order. Value that
// stays at the same address is never reported, and output demand exceeding
// the input supply is left unmatched.
func MatchFlows(inputs []UTxO, outputs []UTxO) []Flow {
	bal := newBalances(inputs)
	fb := &flowBuilder{
		flows: make(map[flowKey]*Flow),
	}
	for _, output := range outputs {
		for _, amount := range output.Amount {
			if amount.Unit == "" {
				continue
			}
			remaining, ok := amount.Quantity.Int()
			if !ok || remaining.Sign() == 0 {
				continue
			}
			for _, inputAddr := range bal.addresses {
				if remaining.Sign() <= 0 {
					break
				}
				if inputAddr == output.Address {
					continue
				}
				available, ok := bal.byAddress[inputAddr][amount.Unit]
				if !ok || available.Sign() <= 0 {
					continue
				}
				moved := new(big.Int).Set(remaining)
				if available.Cmp(moved) < 0 {
					moved.Set(available)
				}
				available.Sub(available, moved)
				remaining.Sub(remaining, moved)
				fb.add(inputAddr, output.Address, amount.Unit, moved)
			}
		}
	}
	ret := make([]Flow, 0, len(fb.order))
	for _, key := range fb.order {
		ret = append(ret, *fb.flows[key])
	}
	return ret
}

// Summary describes the overall result of matching a transaction
type Summary struct {
	FlowCount      int    `json:"flow_count"`
	CrossedAddress bool   `json:"crossed_address"`
	Description    string `json:"description"`
}

// Summarize reports whether any value moved between different addresses
func Summarize(flows []Flow) Summary {
	if len(flows) == 0 {
		return Summary{
			Description: "UTxO management only, no value crossed addresses",
		}
	}
	return Summary{
		FlowCount:      len(flows),
		CrossedAddress: true,
		Description:    "value moved between addresses",
	}
}
