package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "simtrade",
	Short: "Multiplayer trading game driven by a simulated economy",
	Long: `Simtrade runs a trading-game server whose instruments are priced from an
external economic simulation. It can follow the simulation live or replay
an archived history from postgres on a virtual clock.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "directory containing config.yaml")
}
