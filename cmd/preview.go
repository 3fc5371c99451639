package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/chunker"
	"github.com/abhisek/qagen/internal/generator"
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/qa"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Print generated questions for the first chunks of a document (no database)",
	Long: `Generate questions for the first few chunks of a document and print them.

This is a stateless developer tool: no database, no cache, no events.
Useful for evaluating prompt and model quality before a full run.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	addGenerationFlags(previewCmd)
	previewCmd.Flags().Int("chunks", 1, "Number of leading chunks to generate for")
}

func runPreview(cmd *cobra.Command, args []string) error {
	lc, gc := generationSettings(cmd)
	n, _ := cmd.Flags().GetInt("chunks")
	if n < 1 {
		return fmt.Errorf("--chunks must be >= 1")
	}

	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	chunks, err := chunker.All(doc, chunker.Config{MaxSize: gc.MaxChunkSize, Overlap: gc.Overlap})
	if err != nil {
		return err
	}
	total := len(chunks)
	if len(chunks) > n {
		chunks = chunks[:n]
	}
	if len(chunks) == 0 {
		fmt.Println("Document is empty.")
		return nil
	}

	// Only the previewed text goes to the provider.
	if gc.Source == "" {
		gc.Source = doc.Source()
	}
	doc.Text = chunker.Join(chunks)

	ctx := cmd.Context()
	providers, err := llm.NewProviders(ctx, lc, nil)
	if err != nil {
		return fmt.Errorf("LLM providers: %w", err)
	}
	orch, err := generator.New(providers,
		generator.WithLogger(log.Logger),
		generator.WithDefaultPriority(lc.Providers...))
	if err != nil {
		return err
	}

	fmt.Printf("Document: %s (%d chunks, previewing %d)\n", gc.Source, total, len(chunks))
	fmt.Printf("Generating %s questions with %s...\n\n", gc.QuestionType, strings.Join(lc.Providers, " → "))

	res, err := orch.Generate(ctx, doc, gc)
	if err != nil {
		return err
	}

	for _, rep := range res.Chunks {
		fmt.Printf("── Chunk %d · %s · %s · %d attempt(s) ──\n", rep.Index, rep.State, rep.Provider, rep.Attempts)
		if !rep.Done() {
			fmt.Printf("  failed (%s): %s\n\n", rep.Reason, rep.LastError)
			continue
		}
		for i, rec := range res.RecordsFor(rep.Index) {
			printRecord(i+1, rec)
		}
	}
	return nil
}

func printRecord(n int, rec qa.Record) {
	fmt.Printf("%d. %s\n", n, rec.Question)
	for _, c := range rec.Choices {
		fmt.Printf("     %s) %s\n", c.Letter, c.Text)
	}
	fmt.Printf("   Answer: %s\n", rec.Answer)
	if rec.Explanation != "" {
		fmt.Printf("   Explanation: %s\n", rec.Explanation)
	}
	fmt.Println()
}
