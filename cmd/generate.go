package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/cache"
	"github.com/abhisek/qagen/internal/generator"
	"github.com/abhisek/qagen/internal/llm"
	"github.com/abhisek/qagen/internal/qa"
	"github.com/abhisek/qagen/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>...",
	Short: "Generate a question bank for one or more documents",
	Long: `Generate questions for each document and write the results as JSON.

Use "-" to read a document from stdin. Interrupting with Ctrl-C stops
dispatching new chunks and still writes the partial result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	addGenerationFlags(generateCmd)
	generateCmd.Flags().StringP("out", "o", "", "Write output to this file instead of stdout")
	generateCmd.Flags().String("format", "json", "Output format: json (full results) or jsonl (one record per line)")
	generateCmd.Flags().Bool("no-cache", false, "Do not read or write the result cache")
	generateCmd.Flags().Bool("no-log", false, "Do not record LLM events and runs in the database")
}

// addGenerationFlags registers the flags that override generation settings.
func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", "", "Question type: qa or mcq")
	cmd.Flags().IntP("count", "n", 0, "Questions per chunk (0 accepts any count)")
	cmd.Flags().StringSlice("providers", nil, "Providers in fallback order, e.g. openai,anthropic")
	cmd.Flags().Int("chunk-size", 0, "Maximum chunk size in characters")
	cmd.Flags().Int("overlap", -1, "Characters shared between neighbouring chunks")
	cmd.Flags().Int("concurrency", 0, "Maximum chunks in flight")
	cmd.Flags().Int("max-retries", -1, "Retries per provider for transient, parse and schema errors")
	cmd.Flags().String("source", "", "Source label used in prompts (default: file name)")
}

// generationSettings merges flag overrides into the loaded configuration.
func generationSettings(cmd *cobra.Command) (llm.Config, generator.Config) {
	lc := appConfig.LLM()
	gc := appConfig.Generator()

	if v, _ := cmd.Flags().GetStringSlice("providers"); len(v) > 0 {
		lc.Providers = v
	}
	gc.ProviderPriority = lc.Providers

	if v, _ := cmd.Flags().GetString("type"); v != "" {
		gc.QuestionType = qa.QuestionType(strings.ToLower(v))
	}
	if cmd.Flags().Changed("count") {
		gc.QuestionCount, _ = cmd.Flags().GetInt("count")
	}
	if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
		gc.MaxChunkSize = v
	}
	if cmd.Flags().Changed("overlap") {
		gc.Overlap, _ = cmd.Flags().GetInt("overlap")
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		gc.ConcurrencyLimit = v
	}
	if cmd.Flags().Changed("max-retries") {
		gc.MaxRetries, _ = cmd.Flags().GetInt("max-retries")
	}
	gc.Source, _ = cmd.Flags().GetString("source")
	return lc, gc
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lc, gc := generationSettings(cmd)
	noCache, _ := cmd.Flags().GetBool("no-cache")
	noLog, _ := cmd.Flags().GetBool("no-log")
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "jsonl" {
		return fmt.Errorf("invalid format %q: must be json or jsonl", format)
	}

	docs := make([]qa.Document, 0, len(args))
	for _, path := range args {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	var opts []generator.Option
	var eventRepo store.EventRepo
	if !noLog {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		eventRepo = s.EventRepo()
		opts = append(opts, generator.WithRunRepo(s.RunRepo()))
	}

	if !noCache {
		cc := appConfig.CacheSettings()
		c, err := cache.New(ctx, cc)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		if c != nil {
			if closer, ok := c.(io.Closer); ok {
				defer closer.Close()
			}
			opts = append(opts, generator.WithCache(c, cc.DefaultTTL))
		}
	}

	providers, err := llm.NewProviders(ctx, lc, eventRepo)
	if err != nil {
		return fmt.Errorf("LLM providers: %w", err)
	}
	opts = append(opts, generator.WithLogger(log.Logger), generator.WithDefaultPriority(lc.Providers...))

	orch, err := generator.New(providers, opts...)
	if err != nil {
		return err
	}

	results, err := orch.GenerateBatch(ctx, docs, gc)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := writeResults(out, results, format); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	for _, res := range results {
		if !res.Complete() {
			fmt.Fprintf(os.Stderr, "%s: %d/%d chunks done, failed chunks %v, cancelled=%t\n",
				res.DocumentID, res.DoneChunks(), len(res.Chunks), res.FailedChunks, res.Cancelled)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", context.Cause(ctx))
	}
	return nil
}

// readDocument loads path, or stdin for "-", into a Document titled
// after the file name.
func readDocument(path string) (qa.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return qa.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	doc := qa.Document{ID: path, Text: string(data)}
	if path != "-" {
		base := filepath.Base(path)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return doc, nil
}

func writeResults(w io.Writer, results []*generator.Result, format string) error {
	if format == "jsonl" {
		enc := json.NewEncoder(w)
		for _, res := range results {
			for _, rec := range res.Records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
		}
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}
