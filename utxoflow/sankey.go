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
	"math/big"
)

const (
	SideInput  = "input"
	SideOutput = "output"
)

// SankeyNode is one side of a diagram edge. An address that both spends
// and receives appears once per side
type SankeyNode struct {
	Address string `json:"address"`
	Side    string `json:"side"`
}

// SankeyLink is a single weighted edge between node indexes
type SankeyLink struct {
	Source int      `json:"source"`
	Target int      `json:"target"`
	Unit   string   `json:"unit"`
	Value  *big.Int `json:"value"`
}

// Sankey is a node/link graph for flow diagrams
type Sankey struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

// BuildSankey converts flows into a diagram graph with one link per flow
// and unit. When unit is non-empty only links for that unit are included
func BuildSankey(flows []Flow, unit string) Sankey {
	ret := Sankey{
		Nodes: []SankeyNode{},
		Links: []SankeyLink{},
	}
	index := make(map[SankeyNode]int)
	nodeIdx := func(node SankeyNode) int {
		if idx, ok := index[node]; ok {
			return idx
		}
		idx := len(ret.Nodes)
		ret.Nodes = append(ret.Nodes, node)
		index[node] = idx
		return idx
	}
	for _, flow := range flows {
		for _, uq := range flow.Units {
			if unit != "" && uq.Unit != unit {
				continue
			}
			ret.Links = append(ret.Links, SankeyLink{
				Source: nodeIdx(SankeyNode{Address: flow.From, Side: SideInput}),
				Target: nodeIdx(SankeyNode{Address: flow.To, Side: SideOutput}),
				Unit:   uq.Unit,
				Value:  new(big.Int).Set(uq.Quantity),
			})
		}
	}
	return ret
}
