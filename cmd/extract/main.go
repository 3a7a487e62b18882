package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voicepack-extractor/internal/batch"
	"voicepack-extractor/internal/config"
	"voicepack-extractor/internal/crypto"

	"github.com/sirupsen/logrus"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	inputDir := flag.String("input", "", "Directory with VP_*.bin voice packs (default: voice-packs)")
	outputDir := flag.String("output", "", "Output directory (default: extracted)")
	key := flag.String("key", "", "AES key, 16 ASCII characters")
	iv := flag.String("iv", "", "AES IV, 16 ASCII characters")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Extract only first N packs for testing")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:  *inputDir,
		OutputDir: *outputDir,
		Key:       *key,
		IV:        *iv,
		Workers:   *workers,
	})

	if cfg.Key == "" || cfg.IV == "" {
		fmt.Fprintln(os.Stderr, "Error: key and IV required. Use -key/-iv, config.json, or run findkey first.")
		os.Exit(1)
	}

	material, err := crypto.MaterialFromStrings(cfg.Key, cfg.IV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mode := ""
	if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("Voice pack extractor%s\n", mode)
	fmt.Printf("Input: %s, Workers: %d\n", cfg.InputDir, cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	results, err := batch.Run(batch.Config{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Material:  material,
		Workers:   cfg.Workers,
		Limit:     *testN,
		Logger:    logrus.New(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	total, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			total += r.Extracted
			fmt.Printf("  %-12s → %d prompts\n", r.Lang, r.Extracted)
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Extracted: %d prompts from %d/%d packs\n", total, len(results)-failed, len(results))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		for _, e := range errors {
			fmt.Printf("  %s: %s\n", e.File, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 || total == 0 {
		os.Exit(1)
	}
}
