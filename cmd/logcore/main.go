// Command logcore assembles structured log lines into logical messages and
// compiles wildcard queries against the resulting logtype space.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	rootCmd := &cobra.Command{
		Use:   "logcore",
		Short: "Structured log assembly and wildcard query compilation",
	}

	rootCmd.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	rootCmd.PersistentFlags().String("config", "", "path to a JSON config file (default: memory config, bootstrap only)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(newIngestCommand(logger), newQueryCommand(logger), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
