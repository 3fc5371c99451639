package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/parser"
	"github.com/abhisek/qagen/internal/qa"
	"github.com/abhisek/qagen/internal/qaschema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Parse and validate a saved model response",
	Long: `Run a raw model response through the same repair and schema checks used
during generation. Useful with "qagen llm view" output when a chunk failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		count, _ := cmd.Flags().GetInt("count")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		cand, err := parser.Parse(string(raw))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "parsed via %s\n", cand.Method)

		recs, err := qaschema.Validate(cand.Value, qaschema.Expect{
			Type:  qa.QuestionType(strings.ToLower(typ)),
			Count: count,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

func init() {
	validateCmd.Flags().StringP("type", "t", "qa", "Question type: qa or mcq")
	validateCmd.Flags().IntP("count", "n", 0, "Required number of questions (0 accepts any)")
}
