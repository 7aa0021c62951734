package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replaysim",
	Short: "A bar-replay paper trading simulator",
	Long: `Replaysim generates a synthetic futures price history and replays it bar by bar
while you paper trade against it.

It provides tools for:
  - Replaying a seeded history with a scripted or real-time clock
  - Serving the replay to a browser chart over websocket
  - Journaling trades and equity to CSV or SQLite
  - Reviewing past sessions as Org-mode reports`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (text, json)")
}
