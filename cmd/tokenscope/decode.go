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
	"io"

	"github.com/blinklabs-io/tokenscope/api"
	"github.com/spf13/cobra"
)

func decodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <unit>...",
		Short: "Decode asset units into policy ID and display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeRun(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

func decodeRun(w io.Writer, units []string) error {
	enc := json.NewEncoder(w)
	for _, unit := range units {
		if err := enc.Encode(api.NewDecodeResponse(unit)); err != nil {
			return err
		}
	}
	return nil
}
