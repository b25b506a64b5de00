package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rahl-ai/rahl-core/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent interactions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "show N most recent interactions")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON instead of table")
}

// #region history
func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "no interactions recorded")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-10s  %-16s  %s\n", "ID", "CREATED", "MODALITY", "EMOTION", "INTENT", "INPUT")
	fmt.Fprintf(out, "%s\n", strings.Repeat("-", 120))
	for _, r := range rows {
		fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-10s  %-16s  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Modality, dash(r.EmotionLabel), dash(r.TopPrediction), truncate(r.Input, 40))
	}
	return nil
}

// #endregion history

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
