package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
	"github.com/trustreg-labs/trustreg-go/internal/ingest"
	"github.com/trustreg-labs/trustreg-go/internal/llm"
	"github.com/trustreg-labs/trustreg-go/internal/metrics"
	"github.com/trustreg-labs/trustreg-go/internal/scoring"
)

var (
	weightsPath string
	offline     bool
)

var scoreCmd = &cobra.Command{
	Use:   "score URL_FILE",
	Short: "Classify URL rows and score each model",
	Long: `Score reads delimiter-separated rows (code, dataset, model) from
URL_FILE ("-" for stdin), gathers evidence from Hugging Face and GitHub,
and prints one NDJSON report per model with per-metric scores and
latencies. Metrics whose source URL is missing or invalid report -1.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&weightsPath, "weights", "", "YAML file of metric weights for the net score")
	scoreCmd.Flags().BoolVar(&offline, "offline", false, "skip all network access; every source reports unavailable")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	in, err := openInput(args[0])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	weights := scoring.DefaultWeights()
	if weightsPath != "" {
		weights, err = scoring.LoadWeights(weightsPath)
		if err != nil {
			return err
		}
	}

	var gatherer hub.Gatherer = hub.Offline{}
	var generator llm.Generator
	if !offline {
		hubCfg, err := hub.ConfigFromEnv()
		if err != nil {
			return fmt.Errorf("configure hub: %w", err)
		}
		gatherer = hub.NewClient(hubCfg, nil, logger)
		model, err := llm.NewModel(llm.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("configure llm: %w", err)
		}
		if model != nil {
			generator = model
		}
	}

	resolver := ingest.NewResolver(resolverOptions())
	rows, err := resolver.ClassifyAll(in, logger)
	if err != nil {
		return err
	}

	scorer := scoring.NewScorer(gatherer, metrics.All(generator), weights, logger)
	reports := scorer.ScoreAll(cmd.Context(), rows)

	return scoring.NewNDJSONWriter(os.Stdout).WriteAll(reports)
}
