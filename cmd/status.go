package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pricescan/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured OCR provider chain",
	Long: `Report which OCR providers are configured and enabled, in fallback
priority order, along with the confidence threshold.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("status")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hybrid, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	status := hybrid.Status()

	if jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return nil
	}

	fmt.Println("OCR provider chain (priority order):")
	for i, name := range status.Order {
		fmt.Printf("  %d. %-15s %s\n", i+1, name, status.Providers[name])
	}
	fmt.Printf("Confidence threshold: %.0f\n", status.ConfidenceThreshold)
	return nil
}
