package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded generation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.RunRepo().QueryGenerationRuns(context.Background(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No generation runs found.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-24s  %-4s  %6s  %7s  %6s  %8s\n",
			"Run", "Timestamp", "Source", "Type", "Chunks", "Records", "Failed", "Duration")
		fmt.Println(strings.Repeat("─", 124))
		for _, r := range runs {
			status := fmt.Sprintf("%d", len(r.FailedChunks))
			if r.Cancelled {
				status += "*"
			}
			fmt.Printf("%-36s  %-19s  %-24s  %-4s  %6d  %7d  %6s  %8s\n",
				r.RunID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(r.Source, 24),
				r.QuestionType,
				r.ChunkCount,
				r.RecordCount,
				status,
				(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Second),
			)
		}
		fmt.Println("\n* cancelled")
		return nil
	},
}

var runsViewCmd = &cobra.Command{
	Use:   "view <run-id>",
	Short: "Show one generation run and its LLM usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		r, err := s.RunRepo().GetGenerationRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if r == nil {
			return fmt.Errorf("run %s not found", args[0])
		}

		fmt.Printf("Run:        %s\n", r.RunID)
		fmt.Printf("Time:       %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Document:   %s\n", r.DocumentID)
		fmt.Printf("Source:     %s\n", r.Source)
		fmt.Printf("Type:       %s\n", r.QuestionType)
		fmt.Printf("Providers:  %s\n", strings.Join(r.Providers, " → "))
		fmt.Printf("Chunks:     %d (%d cached)\n", r.ChunkCount, r.CachedChunks)
		fmt.Printf("Records:    %d\n", r.RecordCount)
		if len(r.FailedChunks) > 0 {
			fmt.Printf("Failed:     %v\n", r.FailedChunks)
		}
		if r.Cancelled {
			fmt.Println("Cancelled:  yes")
		}
		fmt.Printf("Duration:   %s\n", time.Duration(r.DurationMs)*time.Millisecond)

		events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{RunID: r.RunID})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		var in, out, failed int
		for _, e := range events {
			in += e.InputTokens
			out += e.OutputTokens
			if !e.Success {
				failed++
			}
		}
		fmt.Printf("LLM calls:  %d (%d failed), %d in / %d out tokens\n", len(events), failed, in, out)
		return nil
	},
}

func init() {
	runsListCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsViewCmd)
}
