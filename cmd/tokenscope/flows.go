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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/tokenscope/api"
	"github.com/blinklabs-io/tokenscope/backend"
	"github.com/spf13/cobra"
)

func flowsCommand() *cobra.Command {
	var unit string
	cmd := &cobra.Command{
		Use:   "flows <tx.json>",
		Short: "Compute value flows between addresses for a transaction",
		Long: "Reads a transaction as returned by the backend " +
			"({\"utxos\": {\"inputs\": [...], \"outputs\": [...]}}) or a bare " +
			"{\"inputs\": [...], \"outputs\": [...]} object, and prints the " +
			"matched flows. Use - to read from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if args[0] == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return flowsRun(cmd.OutOrStdout(), r, unit)
		},
	}
	cmd.Flags().
		StringVar(&unit, "unit", "", "limit Sankey links to a single unit")
	return cmd
}

func flowsRun(w io.Writer, r io.Reader, unit string) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var tx backend.TransactionResponse
	if err := json.Unmarshal(buf, &tx); err != nil {
		return fmt.Errorf("failed to parse transaction: %w", err)
	}
	inputs, outputs := tx.Utxos.Inputs, tx.Utxos.Outputs
	if len(inputs) == 0 && len(outputs) == 0 {
		var req api.FlowsRequest
		if err := json.Unmarshal(buf, &req); err != nil {
			return fmt.Errorf("failed to parse transaction: %w", err)
		}
		inputs, outputs = req.Inputs, req.Outputs
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	resp := api.NewFlowsResponse(inputs, outputs, unit)
	resp.Hash = tx.Hash
	return enc.Encode(resp)
}
