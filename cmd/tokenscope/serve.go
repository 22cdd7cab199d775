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
	"log/slog"
	"os"

	"github.com/blinklabs-io/tokenscope/internal/config"
	"github.com/blinklabs-io/tokenscope/internal/node"
	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()
	if err := node.Run(cfg, logger); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var backendUrl string
	var storage string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the API service",
		PreRunE: loadConfig,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			// Override config with command line flags
			if backendUrl != "" {
				cfg.BackendUrl = backendUrl
			}
			if storage != "" {
				cfg.Storage = storage
				if err := cfg.Validate(); err != nil {
					slog.Error(err.Error())
					os.Exit(1)
				}
			}
			serveRun(cmd, args, cfg)
		},
	}
	cmd.Flags().
		StringVar(&backendUrl, "backend", "", "backend REST API base URL")
	cmd.Flags().
		StringVar(&storage, "storage", "", "cache storage backend: memory, badger, or sqlite")
	return cmd
}
