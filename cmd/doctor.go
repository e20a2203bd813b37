package cmd

import (
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/slacktail/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration health without connecting",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("slacktail doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND)")
		return
	}
	fmt.Println(" (OK)")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	names := make([]string, 0, len(cfg.Teams))
	for name := range cfg.Teams {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Printf("  Teams:    %d\n", len(names))
	for _, name := range names {
		fmt.Printf("    %-12s %d channels\n", name+":", len(cfg.Teams[name].Channels))
	}

	fmt.Println()
	fmt.Println("  Handlers:")
	fmt.Printf("    %-12s %s\n", "console:", onOff(cfg.Handlers.Console.On()))
	fmt.Printf("    %-12s %s\n", "notification:", onOff(cfg.Handlers.Notification.Enabled))
	fmt.Printf("    %-12s %s\n", "speech:", onOff(cfg.Handlers.Speech.Enabled))

	fmt.Println()
	fmt.Printf("  Highlight keywords: %d\n", len(cfg.Highlight.Keywords))
	fmt.Printf("  Telemetry: %s\n", onOff(cfg.Telemetry.Enabled))
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
