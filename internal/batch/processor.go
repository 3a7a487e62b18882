// Package batch extracts every voice pack in a directory using a worker pool.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"voicepack-extractor/internal/crypto"
	"voicepack-extractor/internal/voicepack"

	"github.com/sirupsen/logrus"
)

// Config holds all shared resources for a batch run.
type Config struct {
	InputDir  string
	OutputDir string
	Material  crypto.Material
	Workers   int
	Limit     int // process only the first N packs when > 0, for testing
	Logger    *logrus.Logger
}

// Result holds the outcome of processing one pack.
type Result struct {
	File      string `json:"file"`
	Lang      string `json:"lang"`
	Extracted int    `json:"extracted"`
	Skipped   int    `json:"skipped"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Run decodes all *.bin packs under cfg.InputDir and writes each prompt as
// <output>/<lang>/prompt_NN.mp3. One bad pack never aborts the batch.
func Run(cfg Config) ([]Result, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	files, err := listPacks(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if cfg.Limit > 0 && cfg.Limit < len(files) {
		files = files[:cfg.Limit]
	}

	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					log.Infof("[%d/%d] %.1f packs/sec", p, total, float64(p)/elapsed)
				}
			}
		}
	}()

	// Worker pool
	packChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range packChan {
				results[idx] = processPack(cfg, log, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		packChan <- i
	}
	close(packChan)

	wg.Wait()
	close(done)

	return results, nil
}

func listPacks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func processPack(cfg Config, log *logrus.Logger, name string) Result {
	lang := LangFromName(name)
	res := Result{File: name, Lang: lang}

	raw, err := os.ReadFile(filepath.Join(cfg.InputDir, name))
	if err != nil {
		res.Error = err.Error()
		return res
	}

	decoded, err := voicepack.Decode(raw, cfg.Material)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	for _, s := range decoded.Skipped {
		log.Warnf("%s: entry %d out of bounds (offset %d, size %d), skipped", name, s.Index, s.Offset, s.Size)
	}
	res.Skipped = len(decoded.Skipped)

	outDir := filepath.Join(cfg.OutputDir, lang)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	for _, p := range decoded.Prompts {
		if !voicepack.LooksLikeMPEG(p.Data) {
			log.Warnf("%s: prompt %02d does not look like MPEG audio", name, p.Index)
		}
		outPath := filepath.Join(outDir, fmt.Sprintf("prompt_%02d.mp3", p.Index))
		if err := os.WriteFile(outPath, p.Data, 0644); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Extracted++
	}

	res.Success = true
	return res
}

// LangFromName derives the language directory from a pack filename,
// e.g. "VP_english_UPG_03.bin" → "english".
func LangFromName(name string) string {
	base := strings.TrimSuffix(name, ".bin")
	base = strings.TrimPrefix(base, "VP_")
	if i := strings.Index(base, "_UPG_"); i >= 0 {
		base = base[:i]
	}
	return base
}
