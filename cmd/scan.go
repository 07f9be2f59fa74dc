package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pricescan/internal/logger"
	"pricescan/internal/ocr"
	"pricescan/internal/preprocess"
	"pricescan/internal/price"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image-file]",
	Short: "Recognize the price on a photographed price tag",
	Long: `Run a price-tag photo through the OCR fallback chain and print the
detected price. Providers are tried in priority order (Google Vision,
Document AI, OCR.space, TrOCR, Tesseract); the first one that yields a
plausible price wins.

With --preprocess the image is resized, center-cropped and
contrast-boosted before recognition, which usually helps the local
engine on full-frame phone captures.`,
	Example: `  # Scan a price tag photo
  pricescan scan tag.jpg

  # Machine-readable output with all candidate prices
  pricescan scan tag.jpg --json

  # Offline only
  USE_GOOGLE_VISION=false USE_OCR_SPACE=false pricescan scan tag.jpg

  # Skip preprocessing for an already-cropped image
  pricescan scan tag.jpg --preprocess=false`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

// ScanOutput is the JSON output structure when --json is used.
type ScanOutput struct {
	Price       *float64  `json:"price"`
	PriceText   string    `json:"price_text,omitempty"`
	AllPrices   []float64 `json:"all_prices"`
	ProductName string    `json:"product_name,omitempty"`
	Method      string    `json:"method"`
	Confidence  float64   `json:"confidence"`
	Text        string    `json:"text,omitempty"`
	Error       string    `json:"error,omitempty"`
	FileName    string    `json:"file_name"`
	ScannedAt   time.Time `json:"scanned_at"`
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().Bool("json", false, "Output as JSON")
	scanCmd.Flags().Bool("preprocess", true, "Resize/crop/contrast the image before recognition")
	scanCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
	scanCmd.Flags().Bool("text", false, "Include the raw recognized text in the output")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	doPreprocess, _ := cmd.Flags().GetBool("preprocess")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	includeText, _ := cmd.Flags().GetBool("text")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Bool("json", jsonOutput).
		Bool("preprocess", doPreprocess).
		Int("timeout", timeoutSecs).
		Msg("Starting price scan")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	img, err := ocr.ImageFromFile(imagePath)
	if err != nil {
		log.Error().Err(err).Str("file", imagePath).Msg("Failed to read image")
		return err
	}

	if doPreprocess {
		processed, err := preprocess.ForOCR(img.Data)
		if err != nil {
			// A decode failure here usually means an unusual encoding the
			// cloud backends may still accept; scan the original frame.
			log.Warn().Err(err).Msg("Preprocessing failed, using original image")
		} else {
			img = ocr.Image{Data: processed, MIME: "image/jpeg"}
		}
	}

	ctx, cancel := scanContext(timeoutSecs, log)
	defer cancel()

	hybrid, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := hybrid.RecognizePrice(ctx, img)
	if err != nil {
		return handleScanError(err, log)
	}

	if result.Method == ocr.MethodNone {
		log.Warn().Str("reason", result.Err).Msg("No price detected")
	} else {
		log.Info().
			Str("method", result.Method).
			Float64("price", *result.Price).
			Float64("confidence", result.Confidence).
			Msg("Scan completed")
	}

	return outputScanResult(result, imagePath, outputPath, jsonOutput, includeText, log)
}

// scanContext creates the command context with timeout and interrupt
// handling.
func scanContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling scan")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleScanError provides user-friendly messages for hard failures.
// Provider outages never reach here; the orchestrator recovers those.
func handleScanError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Price scan failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("scan timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("scan was canceled")
	case errors.Is(err, ocr.ErrNoImage):
		return fmt.Errorf("image file is empty or unreadable")
	default:
		return fmt.Errorf("price scan failed: %w", err)
	}
}

// outputScanResult formats and writes the scan result.
func outputScanResult(result *ocr.Result, imagePath, outputPath string, jsonOutput, includeText bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		out := ScanOutput{
			Price:       result.Price,
			AllPrices:   result.AllPrices,
			ProductName: result.ProductName,
			Method:      result.Method,
			Confidence:  result.Confidence,
			Error:       result.Err,
			FileName:    filepath.Base(imagePath),
			ScannedAt:   time.Now(),
		}
		if result.Price != nil {
			out.PriceText = "$" + price.FormatPriceAR(*result.Price)
		}
		if includeText {
			out.Text = result.Text
		}

		var err error
		outputData, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		var b strings.Builder
		if result.Price != nil {
			b.WriteString(fmt.Sprintf("Price: $%s\n", price.FormatPriceAR(*result.Price)))
			if result.ProductName != "" {
				b.WriteString(fmt.Sprintf("Product: %s\n", result.ProductName))
			}
			b.WriteString(fmt.Sprintf("Method: %s (%.0f%% confidence)\n", result.Method, result.Confidence))
			if len(result.AllPrices) > 1 {
				b.WriteString("Other candidates:")
				for _, v := range result.AllPrices {
					if result.Price != nil && v == *result.Price {
						continue
					}
					b.WriteString(" $" + price.FormatPrice(v))
				}
				b.WriteString("\n")
			}
		} else {
			b.WriteString(fmt.Sprintf("No price detected: %s\n", result.Err))
		}
		if includeText && result.Text != "" {
			b.WriteString("\n=== Recognized text ===\n")
			b.WriteString(result.Text)
			b.WriteString("\n")
		}
		outputData = []byte(b.String())
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("Scan result written to file")
		return nil
	}

	if _, err := os.Stdout.Write(outputData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if jsonOutput {
		fmt.Println()
	}
	return nil
}
