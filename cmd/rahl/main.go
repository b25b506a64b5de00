// Command rahl runs the multimodal assistant core: an HTTP service, an
// interactive console and offline tools over the interaction history.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahl-ai/rahl-core/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rahl",
	Short: "Multimodal assistant core",
	Long: `rahl routes text, image and audio input through a remote inference
backend, fuses the outputs with recent context and records every
interaction. Use 'rahl serve' for the HTTP API or 'rahl chat' for a
console session.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: rahl.yaml in $HOME/.rahl or .)")
}

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
