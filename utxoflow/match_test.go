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
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a534e454b"

func utxo(address string, amounts ...Amount) UTxO {
	return UTxO{Address: address, Amount: amounts}
}

func lovelace(qty string) Amount {
	return Amount{Unit: "lovelace", Quantity: Quantity(qty)}
}

func token(qty string) Amount {
	return Amount{Unit: testToken, Quantity: Quantity(qty)}
}

func assertQuantity(t *testing.T, expected int64, actual *big.Int) {
	t.Helper()
	assert.Equal(t, 0, big.NewInt(expected).Cmp(actual), "expected %d, got %s", expected, actual)
}

func TestMatchFlowsEmpty(t *testing.T) {
	flows := MatchFlows(nil, nil)
	assert.Empty(t, flows)
	assert.NotNil(t, flows)
	assert.False(t, Summarize(flows).CrossedAddress)
}

func TestMatchFlowsSplitOutputs(t *testing.T) {
	inputs := []UTxO{utxo("A", lovelace("100"))}
	outputs := []UTxO{
		utxo("B", lovelace("30")),
		utxo("C", lovelace("70")),
	}
	flows := MatchFlows(inputs, outputs)
	require.Len(t, flows, 2)
	assert.Equal(t, "A", flows[0].From)
	assert.Equal(t, "B", flows[0].To)
	assertQuantity(t, 30, flows[0].TotalQuantity)
	assert.Equal(t, "A", flows[1].From)
	assert.Equal(t, "C", flows[1].To)
	assertQuantity(t, 70, flows[1].TotalQuantity)
}

func TestMatchFlowsPartialSupply(t *testing.T) {
	flows := MatchFlows(
		[]UTxO{utxo("A", lovelace("100"))},
		[]UTxO{utxo("B", lovelace("60"))},
	)
	require.Len(t, flows, 1)
	assertQuantity(t, 60, flows[0].TotalQuantity)
	assertQuantity(t, 60, flows[0].Quantity("lovelace"))
}

func TestMatchFlowsNeverSelf(t *testing.T) {
	inputs := []UTxO{
		utxo("A", lovelace("100"), token("5")),
		utxo("B", lovelace("50")),
	}
	outputs := []UTxO{
		utxo("A", lovelace("120"), token("5")),
		utxo("B", lovelace("25")),
	}
	flows := MatchFlows(inputs, outputs)
	for _, flow := range flows {
		assert.NotEqual(t, flow.From, flow.To)
	}
	// A's change can only come from B, and B's output only from A
	require.Len(t, flows, 2)
	assert.Equal(t, "B", flows[0].From)
	assert.Equal(t, "A", flows[0].To)
	assertQuantity(t, 50, flows[0].TotalQuantity)
	assert.Equal(t, "A", flows[1].From)
	assert.Equal(t, "B", flows[1].To)
	assertQuantity(t, 25, flows[1].TotalQuantity)
}

func TestMatchFlowsSelfTransferOnly(t *testing.T) {
	flows := MatchFlows(
		[]UTxO{utxo("A", lovelace("100")), utxo("A", lovelace("50"))},
		[]UTxO{utxo("A", lovelace("149"))},
	)
	assert.Empty(t, flows)
	summary := Summarize(flows)
	assert.False(t, summary.CrossedAddress)
	assert.Contains(t, summary.Description, "UTxO management only")
}

func TestMatchFlowsFirstFitAcrossInputs(t *testing.T) {
	inputs := []UTxO{
		utxo("A", lovelace("40")),
		utxo("B", lovelace("100")),
		utxo("A", lovelace("10")),
	}
	outputs := []UTxO{utxo("C", lovelace("90"))}
	flows := MatchFlows(inputs, outputs)
	require.Len(t, flows, 2)
	// Duplicate input addresses are merged into one balance
	assert.Equal(t, "A", flows[0].From)
	assertQuantity(t, 50, flows[0].TotalQuantity)
	assert.Equal(t, "B", flows[1].From)
	assertQuantity(t, 40, flows[1].TotalQuantity)
}

func TestMatchFlowsMultiAsset(t *testing.T) {
	inputs := []UTxO{utxo("A", lovelace("2000000"), token("500"))}
	outputs := []UTxO{utxo("B", lovelace("1500000"), token("200"))}
	flows := MatchFlows(inputs, outputs)
	require.Len(t, flows, 1)
	require.Len(t, flows[0].Units, 2)
	assert.Equal(t, "lovelace", flows[0].Units[0].Unit)
	assertQuantity(t, 1500000, flows[0].Quantity("lovelace"))
	assertQuantity(t, 200, flows[0].Quantity(testToken))
	assertQuantity(t, 1500200, flows[0].TotalQuantity)
	assertQuantity(t, 0, flows[0].Quantity("missing"))
}

func TestMatchFlowsDemandExceedsSupply(t *testing.T) {
	flows := MatchFlows(
		[]UTxO{utxo("A", lovelace("10"))},
		[]UTxO{utxo("B", lovelace("15")), utxo("C", lovelace("5"))},
	)
	require.Len(t, flows, 1)
	assert.Equal(t, "B", flows[0].To)
	assertQuantity(t, 10, flows[0].TotalQuantity)
}

func TestMatchFlowsSkipsInvalidAmounts(t *testing.T) {
	inputs := []UTxO{utxo("A",
		lovelace("100"),
		Amount{Unit: "", Quantity: "5"},
		Amount{Unit: testToken, Quantity: "abc"},
	)}
	outputs := []UTxO{utxo("B",
		Amount{Unit: "", Quantity: "5"},
		lovelace("-5"),
		lovelace(""),
		lovelace("1.5"),
		lovelace("20"),
		token("3"),
	)}
	flows := MatchFlows(inputs, outputs)
	require.Len(t, flows, 1)
	require.Len(t, flows[0].Units, 1)
	assertQuantity(t, 20, flows[0].TotalQuantity)
}

func TestMatchFlowsTotalBoundedBySupply(t *testing.T) {
	inputs := []UTxO{
		utxo("A", lovelace("1000")),
		utxo("B", lovelace("300")),
	}
	outputs := []UTxO{
		utxo("C", lovelace("700")),
		utxo("D", lovelace("700")),
		utxo("A", lovelace("200")),
	}
	total := new(big.Int)
	for _, flow := range MatchFlows(inputs, outputs) {
		total.Add(total, flow.TotalQuantity)
	}
	assert.LessOrEqual(t, total.Cmp(big.NewInt(1300)), 0)
}

func TestMatchFlowsLargeQuantities(t *testing.T) {
	huge := "340282366920938463463374607431768211456"
	flows := MatchFlows(
		[]UTxO{utxo("A", token(huge))},
		[]UTxO{utxo("B", token(huge))},
	)
	require.Len(t, flows, 1)
	assert.Equal(t, huge, flows[0].TotalQuantity.String())
}

func TestQuantityUnmarshal(t *testing.T) {
	var amounts []Amount
	err := json.Unmarshal(
		[]byte(`[{"unit":"lovelace","quantity":"42"},{"unit":"lovelace","quantity":7},{"unit":"x","quantity":null}]`),
		&amounts,
	)
	require.NoError(t, err)
	require.Len(t, amounts, 3)
	assert.Equal(t, Quantity("42"), amounts[0].Quantity)
	assert.Equal(t, Quantity("7"), amounts[1].Quantity)
	_, ok := amounts[2].Quantity.Int()
	assert.False(t, ok)
}

func TestBuildSankey(t *testing.T) {
	flows := MatchFlows(
		[]UTxO{utxo("A", lovelace("100"), token("10"))},
		[]UTxO{utxo("B", lovelace("30"), token("10")), utxo("A", lovelace("60"))},
	)
	sankey := BuildSankey(flows, "")
	require.Len(t, sankey.Nodes, 2)
	assert.Equal(t, SankeyNode{Address: "A", Side: SideInput}, sankey.Nodes[0])
	assert.Equal(t, SankeyNode{Address: "B", Side: SideOutput}, sankey.Nodes[1])
	require.Len(t, sankey.Links, 2)

	filtered := BuildSankey(flows, testToken)
	require.Len(t, filtered.Links, 1)
	assertQuantity(t, 10, filtered.Links[0].Value)

	empty := BuildSankey(nil, "")
	assert.Empty(t, empty.Nodes)
	assert.NotNil(t, empty.Links)
}
