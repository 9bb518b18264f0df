package main

import (
	"fmt"
	"os"

	"innerbloom-server/internal/model"
	"innerbloom-server/internal/runner"

	"github.com/spf13/cobra"
)

var interactiveFlags struct {
	userID     string
	mode       string
	source     string
	prompt     string
	promptFile string
	persist    bool
	dryRun     bool
	seed       int64
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Generate with an optional prompt override, preview and persistence",
	Long: `interactive infers the mode from the user's game mode unless --mode is given,
accepts an ad-hoc prompt (a template JSON object or plain text) and, with --persist,
stores validated tasks in PostgreSQL and announces them on RabbitMQ when configured.`,
	RunE: runInteractive,
}

func init() {
	f := interactiveCmd.Flags()
	f.StringVar(&interactiveFlags.userID, "user", "", "user id (empty uses the mock user)")
	f.StringVar(&interactiveFlags.mode, "mode", "", "mode; empty infers it from the user's game mode")
	f.StringVar(&interactiveFlags.source, "source", "live", "snapshot source: live, static or mock")
	f.StringVar(&interactiveFlags.prompt, "prompt", "", "prompt override text")
	f.StringVar(&interactiveFlags.promptFile, "prompt-file", "", "read the prompt override from a file")
	f.BoolVar(&interactiveFlags.persist, "persist", false, "store validated tasks")
	f.BoolVar(&interactiveFlags.dryRun, "dry-run", false, "synthesize tasks instead of calling the model")
	f.Int64Var(&interactiveFlags.seed, "seed", 0, "dry-run seed")
	interactiveCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
}

func runInteractive(cmd *cobra.Command, args []string) error {
	override := interactiveFlags.prompt
	if interactiveFlags.promptFile != "" {
		data, err := os.ReadFile(interactiveFlags.promptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		override = string(data)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stages, err := a.stages()
	if err != nil {
		return err
	}
	if interactiveFlags.persist {
		if stages.Writer, err = a.connectStorage(cmd.Context()); err != nil {
			return err
		}
		if stages.Notifier, err = a.notifier(); err != nil {
			return err
		}
	}

	it, err := runner.NewInteractive(stages, a.options())
	if err != nil {
		return err
	}
	out, runErr := it.Run(cmd.Context(), runner.InteractiveRequest{
		UserID:         interactiveFlags.userID,
		Mode:           interactiveFlags.mode,
		Source:         model.ParseSource(interactiveFlags.source),
		PromptOverride: override,
		Persist:        interactiveFlags.persist,
		DryRun:         interactiveFlags.dryRun,
		Seed:           interactiveFlags.seed,
	})
	if err := writeJSON(os.Stdout, out, true); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !out.Result.OK() {
		return fmt.Errorf("generation finished with status %s", out.Result.Status)
	}
	return nil
}
