package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustreg-labs/trustreg-go/internal/ingest"
)

var classifyCmd = &cobra.Command{
	Use:   "classify URL_FILE",
	Short: "Parse and classify URL rows without scoring them",
	Long: `Classify reads delimiter-separated rows (code, dataset, model) from
URL_FILE ("-" for stdin) and prints one JSON object per classified row.
Rows without a valid model URL are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	in, err := openInput(args[0])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	resolver := ingest.NewResolver(resolverOptions())
	rows, err := resolver.ClassifyAll(in, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
