package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/chunker"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Show how a document would be split into chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc := appConfig.Generator()
		if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
			gc.MaxChunkSize = v
		}
		if cmd.Flags().Changed("overlap") {
			gc.Overlap, _ = cmd.Flags().GetInt("overlap")
		}
		full, _ := cmd.Flags().GetBool("full")

		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		seq, err := chunker.Split(doc, chunker.Config{MaxSize: gc.MaxChunkSize, Overlap: gc.Overlap})
		if err != nil {
			return err
		}

		fmt.Printf("%-5s  %-8s  %-8s  %-6s  %-7s  %s\n", "Index", "Start", "End", "Len", "Overlap", "Preview")
		fmt.Println(strings.Repeat("─", 90))
		n := 0
		for c := range seq {
			n++
			if full {
				fmt.Printf("── chunk %d [%d:%d] ──\n%s\n", c.Index, c.Start, c.End, c.Text)
				continue
			}
			fmt.Printf("%-5d  %-8d  %-8d  %-6d  %-7d  %s\n",
				c.Index, c.Start, c.End, c.Len(), c.Overlap, preview(c.Fresh(), 40))
		}
		fmt.Printf("\n%d chunks (max %d, overlap %d)\n", n, gc.MaxChunkSize, gc.Overlap)
		return nil
	},
}

func init() {
	chunkCmd.Flags().Int("chunk-size", 0, "Maximum chunk size in characters")
	chunkCmd.Flags().Int("overlap", -1, "Characters shared between neighbouring chunks")
	chunkCmd.Flags().Bool("full", false, "Print full chunk text")
}

// preview flattens whitespace and shortens s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
