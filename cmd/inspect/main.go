package main

import (
	"flag"
	"fmt"
	"os"

	"voicepack-extractor/internal/crypto"
	"voicepack-extractor/internal/voicepack"
)

func main() {
	key := flag.String("key", "", "AES key, 16 ASCII characters (enables full decode)")
	iv := flag.String("iv", "", "AES IV, 16 ASCII characters")

	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-key K -iv V] pack.bin [pack.bin ...]")
		os.Exit(1)
	}

	failed := 0
	for _, arg := range flag.Args() {
		if err := inspect(arg, *key, *iv); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func inspect(path, key, iv string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	h, err := voicepack.ParseHeader(raw)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s (%d bytes) ===\n", path, len(raw))
	fmt.Printf("  nonce:             %x\n", h.Nonce)
	fmt.Printf("  compression type:  %d\n", h.CompressionType)
	fmt.Printf("  body size:         %d\n", h.BodySize)
	fmt.Printf("  decompressed size: %d\n", h.DecompressedSize)

	if key == "" && iv == "" {
		return nil
	}

	m, err := crypto.MaterialFromStrings(key, iv)
	if err != nil {
		return err
	}

	res, err := voicepack.Decode(raw, m)
	if err != nil {
		return err
	}

	fmt.Printf("  prompts: %d (skipped %d)\n", len(res.Prompts), len(res.Skipped))
	for _, p := range res.Prompts {
		tag := ""
		if !voicepack.LooksLikeMPEG(p.Data) {
			tag = "  [not MPEG?]"
		}
		fmt.Printf("    prompt_%02d  %6d bytes%s\n", p.Index, len(p.Data), tag)
	}
	for _, s := range res.Skipped {
		fmt.Printf("    entry %d skipped: offset %d size %d out of bounds\n", s.Index, s.Offset, s.Size)
	}
	return nil
}
