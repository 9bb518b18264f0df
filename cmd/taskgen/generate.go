package main

import (
	"fmt"
	"os"

	"innerbloom-server/internal/model"
	"innerbloom-server/internal/runner"

	"github.com/spf13/cobra"
)

var generateFlags struct {
	userID string
	mode   string
	source string
	dryRun bool
	seed   int64
	pretty bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate tasks for one user and print the result as JSON",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.userID, "user", "", "user id (empty uses the mock user)")
	f.StringVar(&generateFlags.mode, "mode", "", "low, chill, flow or evolve (default DEFAULT_MODE)")
	f.StringVar(&generateFlags.source, "source", "live", "snapshot source: live, static or mock")
	f.BoolVar(&generateFlags.dryRun, "dry-run", false, "synthesize tasks instead of calling the model")
	f.Int64Var(&generateFlags.seed, "seed", 0, "dry-run seed")
	f.BoolVar(&generateFlags.pretty, "pretty", false, "indent the JSON output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stages, err := a.stages()
	if err != nil {
		return err
	}
	r, err := runner.New(stages, a.options())
	if err != nil {
		return err
	}

	res := r.Generate(cmd.Context(), runner.Request{
		UserID: generateFlags.userID,
		Mode:   model.Mode(generateFlags.mode),
		Source: model.ParseSource(generateFlags.source),
		DryRun: generateFlags.dryRun,
		Seed:   generateFlags.seed,
	})
	if err := writeJSON(os.Stdout, res, generateFlags.pretty); err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("generation finished with status %s", res.Status)
	}
	return nil
}
