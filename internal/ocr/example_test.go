package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"pricescan/internal/ocr"
)

// Example demonstrates scanning a price tag with the hybrid pipeline.
func Example() {
	ctx := context.Background()

	vision, err := ocr.NewGoogleVisionProvider(ctx, ocr.GoogleVisionCredentials{
		File: "service-account.json",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer vision.Close()

	tesseract := ocr.NewTesseractProvider(ocr.TesseractConfig{Language: "spa"})
	defer tesseract.Close()

	hybrid := ocr.NewHybrid(vision, tesseract)

	img, err := ocr.ImageFromFile("price-tag.jpg")
	if err != nil {
		log.Fatal(err)
	}

	result, err := hybrid.RecognizePrice(ctx, img)
	if err != nil {
		log.Fatal(err)
	}
	if result.Err != "" {
		fmt.Println("no price found:", result.Err)
		return
	}
	fmt.Printf("price: %.2f (via %s)\n", *result.Price, result.Method)
}

// ExampleHybrid_Configure shows toggling providers at runtime.
func ExampleHybrid_Configure() {
	ocrSpace, err := ocr.NewOCRSpaceProvider(ocr.OCRSpaceConfig{
		APIKey: os.Getenv("OCR_SPACE_API_KEY"),
	})
	if err != nil {
		log.Fatal(err)
	}

	hybrid := ocr.NewHybrid(ocrSpace)
	hybrid.Configure(ocr.HybridOptions{
		Enable: map[string]bool{ocr.MethodOCRSpace: false},
	})

	status := hybrid.Status()
	fmt.Println(status.Providers[ocr.MethodOCRSpace])
}

// ExampleRetryAfterHint shows how callers can honor provider backoff.
func ExampleRetryAfterHint() {
	ctx := context.Background()

	trocr, err := ocr.NewTrOCRProvider(ocr.TrOCRConfig{APIKey: os.Getenv("HF_API_KEY")})
	if err != nil {
		log.Fatal(err)
	}

	img, err := ocr.ImageFromFile("price-tag.jpg")
	if err != nil {
		log.Fatal(err)
	}

	_, err = trocr.RecognizeText(ctx, img)
	if err != nil {
		if wait := ocr.RetryAfterHint(err); wait > 0 {
			fmt.Println("model warming up, retry in", wait)
			return
		}
		if errors.Is(err, ocr.ErrAuthentication) {
			log.Fatal("check HF_API_KEY")
		}
		log.Fatal(err)
	}
}
