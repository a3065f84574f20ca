// Package commands implements scenesyncd's CLI commands.
//
// Grounded on the teacher pack's cmd/dittofs/commands/root.go: a
// package-level rootCmd, a persistent --config flag, and subcommands
// registered from init(), scaled down from dittofs's dozen management
// subcommands to host, join, and init.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scenesyncd",
	Short: "Real-time collaborative 3D scene editing daemon",
	Long: `scenesyncd runs one participant's side of a real-time collaborative
3D-scene-editing session: host a new session over a relay, or join one
another participant is hosting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/scenesyncd/config.yaml)")
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(initCmd)
}
