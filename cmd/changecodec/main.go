// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// logger is shared by every subcommand for chunk-level diagnostics
// (decode rejections, hash prefix mismatches) that outlive a single
// RunE's plain error return.
var logger *zap.Logger

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "changecodec",
		Short: "Inspect, verify, and repack change-codec chunk streams",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level.SetLevel(zap.DebugLevel)
			} else {
				cfg.Level.SetLevel(zap.WarnLevel)
			}
			cfg.Encoding = "console"
			cfg.EncoderConfig.TimeKey = ""
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			logger = l
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newInspectCmd(),
		newDumpOpsCmd(),
		newVerifyCmd(),
		newPackCmd(),
		newUnpackCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
