// Package main is the local CLI for the trailer pipeline. It runs the same
// orchestrator the worker Lambda runs, but against a local video file and a
// SQLite job store, so plans can be iterated on without deploying anything.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trailer-cli",
	Short: "Plan promotional trailer variants from a long-form video",
	Long: `trailer-cli derives short promotional trailer cuts from a long-form video:
scenes are scored against an audience profile, spread across the source's
early/middle/late regions per variant, deduplicated across variants, and
assembled into cut lists.

Examples:
  trailer-cli plan --video talk.mp4 --profile action-fan --max-duration 30
  trailer-cli plan --mode mock --source-duration 300 --max-duration 45
  trailer-cli plan --video film.mp4 --max-duration 60 --render --bundle out.zip
  trailer-cli profiles`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
