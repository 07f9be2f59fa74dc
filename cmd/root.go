package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pricescan/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "pricescan",
	Short: "Pricescan - recognize prices on photographed price tags",
	Long: `Pricescan reads a photo of a price tag, runs it through a fallback
chain of OCR backends (Google Cloud Vision, Document AI, OCR.space,
hosted TrOCR, local Tesseract) and extracts the price in Argentine
format ($1.234,56).

Cloud providers are optional and enabled through environment variables;
the local Tesseract engine works offline without any configuration.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Pricescan executed")

		fmt.Println("Welcome to Pricescan!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
