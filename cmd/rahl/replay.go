package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rahl-ai/rahl-core/internal/history"
	"github.com/rahl-ai/rahl-core/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay FIXTURE",
	Short: "Run a fixture through the engine and check expectations",
	Long: `Load the models, send every fixture interaction through the engine in
order and compare each outcome with the fixture's expected results. Context
memory starts empty. Exits non-zero on any mismatch.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	exportLimit       int
	exportDescription string
)

var replayExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write recent text and audio interactions as a fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplayExport,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.AddCommand(replayExportCmd)
	replayExportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 50, "export N most recent interactions")
	replayExportCmd.Flags().StringVar(&exportDescription, "description", "exported session", "fixture description")
}

// #region replay
func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Memory.Warmup = 0

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ai := &boundedAI{Engine: a.Engine, timeout: cfg.Inference.LoadTimeout}
	if err := ai.LoadModels(ctx); err != nil {
		return err
	}

	results := replay.Replay(ctx, a.Engine, f.Interactions)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fixture: %s\n\n", f.Description)
	fmt.Fprintf(out, "%-12s  %-16s  %-10s  %s\n", "TURN", "OUTCOME", "EMOTION", "INTENT")
	for _, r := range results {
		fmt.Fprintf(out, "%-12s  %-16s  %-10s  %s\n", r.TurnID, r.Outcome, dash(r.Emotion), dash(r.TopPrediction))
	}

	s := replay.Summarize(results)
	fmt.Fprintf(out, "\n%d turns, %d ok", s.TotalTurns, s.OK)
	for class, n := range s.Rejected {
		fmt.Fprintf(out, ", %d %s", n, class)
	}
	fmt.Fprintln(out)

	mismatches := replay.Check(results, f.ExpectedResults)
	for _, m := range mismatches {
		fmt.Fprintf(out, "MISMATCH %s: expected %s/%s, got %s/%s\n",
			m.TurnID, m.Expected.Outcome, dash(m.Expected.Emotion), dash(m.Actual.Outcome), dash(m.Actual.Emotion))
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d expectations failed", len(mismatches), len(f.ExpectedResults))
	}
	return nil
}

// #endregion replay

// #region export
func runReplayExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.Recent(cmd.Context(), exportLimit)
	if err != nil {
		return err
	}
	f := replay.ExportFixture(exportDescription, rows)
	if err := replay.WriteFixture(args[0], f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d interactions to %s\n", len(f.Interactions), args[0])
	return nil
}

// #endregion export
