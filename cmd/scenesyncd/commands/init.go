package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scenesync/core/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter scenesyncd configuration file with built-in defaults
applied, so it can be hand-edited afterward.

By default the file is created at $XDG_CONFIG_HOME/scenesyncd/config.yaml.
Use --config to specify a custom path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg, err := config.Load("") // reads config.yaml from the default config directory if present, else built-in defaults
	if err != nil {
		return fmt.Errorf("build default config: %w", err)
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("Edit it, then run: scenesyncd host --config " + path)
	return nil
}
