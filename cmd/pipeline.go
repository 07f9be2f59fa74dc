package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"pricescan/internal/config"
	"pricescan/internal/ocr"
)

// buildPipeline constructs the provider chain from configuration, in
// priority order: paid structured services first, the offline engine
// last. Providers whose construction fails (usually missing cloud
// credentials) are skipped with a warning so the rest of the chain still
// works. The returned cleanup releases every provider that holds
// resources.
func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ocr.Hybrid, func(), error) {
	var providers []ocr.Provider
	var closers []io.Closer

	creds := ocr.GoogleVisionCredentials{
		JSON: cfg.GoogleCredentials,
		File: cfg.GoogleCredentialsFile,
	}

	if cfg.UseGoogleVision {
		p, err := ocr.NewGoogleVisionProvider(ctx, creds)
		if err != nil {
			log.Warn().Err(err).Msg("Google Vision provider unavailable, skipping")
		} else {
			providers = append(providers, p)
			closers = append(closers, p)
		}
	}

	if cfg.UseDocumentAI {
		p, err := ocr.NewDocumentAIProvider(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
			Credentials: creds,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Document AI provider unavailable, skipping")
		} else {
			providers = append(providers, p)
			closers = append(closers, p)
		}
	}

	if cfg.UseOCRSpace {
		p, err := ocr.NewOCRSpaceProvider(ocr.OCRSpaceConfig{
			APIKey:   cfg.OCRSpaceAPIKey,
			Endpoint: cfg.OCRSpaceEndpoint,
			Language: cfg.OCRLanguage,
		})
		if err != nil {
			log.Warn().Err(err).Msg("OCR.space provider unavailable, skipping")
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.UseTrOCR {
		p, err := ocr.NewTrOCRProvider(ocr.TrOCRConfig{
			APIKey: cfg.HFAPIKey,
			Model:  cfg.HFOCRModel,
		})
		if err != nil {
			log.Warn().Err(err).Msg("TrOCR provider unavailable, skipping")
		} else {
			providers = append(providers, p)
		}
	}

	if cfg.UseTesseract {
		p := ocr.NewTesseractProvider(ocr.TesseractConfig{Language: cfg.OCRLanguage})
		providers = append(providers, p)
		closers = append(closers, p)
	}

	if len(providers) == 0 {
		return nil, nil, fmt.Errorf("no OCR providers available; check provider configuration")
	}

	hybrid := ocr.NewHybrid(providers...)
	hybrid.Configure(ocr.HybridOptions{
		ConfidenceThreshold: &cfg.ConfidenceThreshold,
	})

	cleanup := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close OCR provider")
			}
		}
	}
	return hybrid, cleanup, nil
}

// loadConfig loads configuration for a command, with readable errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w\n\nCheck your environment or .env file", err)
	}
	return cfg, nil
}
