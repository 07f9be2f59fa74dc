package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pricescan/internal/logger"
	"pricescan/internal/price"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Extract prices from raw OCR text",
	Long: `Run the price parser over a piece of text without touching any OCR
backend. Useful for checking how noisy recognition output would be
interpreted.`,
	Example: `  pricescan parse 'LECHE ENTERA $1.234,56'

  # See every candidate with positions
  pricescan parse --json 'antes $999 ahora $1.500'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

// ParseOutput is the JSON output structure of the parse command.
type ParseOutput struct {
	BestPrice  *float64          `json:"best_price"`
	AllPrices  []float64         `json:"all_prices"`
	Candidates []price.Candidate `json:"candidates"`
	CleanText  string            `json:"clean_text"`
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().Bool("json", false, "Output as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parse")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	text := strings.Join(args, " ")
	log.Debug().Int("text_length", len(text)).Msg("Parsing text")

	candidates := price.ExtractPrices(text)
	all := price.AllValidPrices(text)
	if all == nil {
		all = []float64{}
	}

	var best *float64
	if v, ok := price.FindMostLikelyPrice(text); ok {
		best = &v
	}

	if jsonOutput {
		out := ParseOutput{
			BestPrice:  best,
			AllPrices:  all,
			Candidates: candidates,
			CleanText:  price.CleanText(text),
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return nil
	}

	if best == nil {
		fmt.Println("No price found")
		return nil
	}
	fmt.Printf("Best price: $%s\n", price.FormatPriceAR(*best))
	if len(candidates) > 1 {
		fmt.Println("Candidates:")
		for _, c := range candidates {
			fmt.Printf("  %-12s -> %s (at %d)\n", c.Raw, price.FormatPrice(c.Value), c.Position)
		}
	}
	return nil
}
