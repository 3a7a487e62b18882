package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"voicepack-extractor/internal/entropymap"
	"voicepack-extractor/internal/keysearch"
	"voicepack-extractor/internal/voicepack"

	"github.com/sirupsen/logrus"
)

// cm4RuntimeBase maps dump offsets back to the CM4 firmware's runtime address
// space, for cross-referencing a disassembly.
const cm4RuntimeBase = 0x04200000

func main() {
	firmware := flag.String("firmware", "", "Path to firmware dump (required)")
	sample := flag.String("sample", "", "Path to a known voice pack .bin used as the ciphertext oracle (required)")
	window := flag.Int("window", keysearch.DefaultWindow, "Candidate pairing window (key and IV are assumed near each other)")
	heatmap := flag.String("heatmap", "", "If nonempty, write a WebP entropy heatmap of the dump here")
	jsonOut := flag.Bool("json", false, "Output the recovered key as JSON")

	flag.Parse()

	log := logrus.New()

	if *firmware == "" || *sample == "" {
		fmt.Fprintln(os.Stderr, "Usage: findkey -firmware dump.bin -sample VP_english_UPG_03.bin [-window N] [-heatmap map.webp] [-json]")
		os.Exit(1)
	}

	fw, err := os.ReadFile(*firmware)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("firmware: %d bytes", len(fw))

	pack, err := os.ReadFile(*sample)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(pack) < voicepack.HeaderSize+16 {
		fmt.Fprintf(os.Stderr, "Error: sample pack too short (%d bytes), no encrypted body\n", len(pack))
		os.Exit(1)
	}
	ciphertext := pack[voicepack.HeaderSize:]

	if off := keysearch.LocateSBox(fw); off >= 0 {
		log.Infof("AES S-box found at offset 0x%04X", off)
	} else {
		log.Warn("AES S-box not found, firmware dump may be incomplete")
	}

	candidates := keysearch.Scan(fw)
	log.Infof("found %d candidate 16-byte ASCII strings", len(candidates))

	if *heatmap != "" {
		marks := make([]int, len(candidates))
		for i, c := range candidates {
			marks[i] = c.Offset
		}
		if err := writeHeatmap(*heatmap, fw, marks); err != nil {
			log.Warnf("heatmap write failed: %v", err)
		} else {
			log.Infof("entropy heatmap written to %s", *heatmap)
		}
	}

	match, err := keysearch.Search(fw, ciphertext, keysearch.Options{Window: *window})
	if err != nil {
		if errors.Is(err, keysearch.ErrKeyNotFound) {
			fmt.Fprintln(os.Stderr, "No valid key/IV pair found. Try a different dump or a wider -window.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	key := string(match.Material.Key[:])
	iv := string(match.Material.IV[:])

	if *jsonOut {
		out, _ := json.Marshal(map[string]string{
			"key":        key,
			"iv":         iv,
			"key_offset": fmt.Sprintf("0x%04X", match.KeyOffset),
			"iv_offset":  fmt.Sprintf("0x%04X", match.IVOffset),
		})
		fmt.Println(string(out))
		return
	}

	fmt.Println("--------------------------------------------")
	fmt.Printf("  AES-128-CBC Key:  %s\n", key)
	fmt.Printf("  AES-128-CBC IV:   %s\n", iv)
	fmt.Println("--------------------------------------------")
	fmt.Printf("  key offset: 0x%04X  (runtime: 0x%08X)\n", match.KeyOffset, cm4RuntimeBase+match.KeyOffset)
	fmt.Printf("  IV offset:  0x%04X  (runtime: 0x%08X)\n", match.IVOffset, cm4RuntimeBase+match.IVOffset)
}

func writeHeatmap(path string, fw []byte, marks []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return entropymap.WriteWebP(f, entropymap.Render(fw, marks))
}
