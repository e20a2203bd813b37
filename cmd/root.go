package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/slacktail/internal/config"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/slacktail/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "slacktail",
	Short: "slacktail — multi-workspace Slack channel feed",
	Long:  "slacktail streams messages from channels across multiple Slack workspaces over Socket Mode and renders them as a single merged console feed.",
	Run: func(cmd *cobra.Command, args []string) {
		runFeed()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .env.json or $SLACKTAIL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(doctorCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slacktail %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("SLACKTAIL_CONFIG"); v != "" {
		return v
	}
	return config.DefaultPath
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
