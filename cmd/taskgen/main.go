// Command taskgen generates Innerbloom tasks from the command line or as a
// RabbitMQ worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "taskgen",
	Short:         "Innerbloom task generation",
	Long:          `taskgen resolves a user snapshot, renders the mode prompt, calls the model and validates the generated tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&globalFlags.appRoot, "app-root", "", "directory candidate paths are resolved against (APP_ROOT)")
	f.StringVar(&globalFlags.snapshotPath, "snapshot", "", "live snapshot file probed first (SNAPSHOT_PATH)")
	f.StringVar(&globalFlags.promptsDir, "prompts-dir", "", "prompt templates directory probed first (PROMPTS_DIR)")
	f.StringVar(&globalFlags.model, "model", "", "model name (AI_MODEL)")
	f.DurationVar(&globalFlags.timeout, "timeout", 0, "model call timeout (AI_TIMEOUT)")
	f.StringVar(&globalFlags.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}
