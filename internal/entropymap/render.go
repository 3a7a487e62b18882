// Package entropymap renders a firmware dump as a per-block Shannon entropy
// heatmap. Failed BLE page reads leave 0xFF fill that shows up as flat black
// bands, so one glance at the map tells whether a dump is worth searching.
package entropymap

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

const (
	// blockLen is the entropy window; one pixel per block.
	blockLen = 32

	// rowBlocks is the map width in blocks before upscaling.
	rowBlocks = 256

	// scale is the output upscale factor.
	scale = 4
)

// markColor tints blocks containing key/IV candidates.
var markColor = color.NRGBA{R: 0xE0, G: 0x30, B: 0x30, A: 0xFF}

// Render draws the heatmap, one block per pixel row-major, dark for low
// entropy and bright for high, then upscales it. marks are byte offsets
// (typically candidate offsets) whose blocks are tinted.
func Render(fw []byte, marks []int) *image.NRGBA {
	img := renderBlocks(fw, marks)
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func renderBlocks(fw []byte, marks []int) *image.NRGBA {
	nblocks := (len(fw) + blockLen - 1) / blockLen
	if nblocks == 0 {
		nblocks = 1
	}
	w := rowBlocks
	if nblocks < w {
		w = nblocks
	}
	h := (nblocks + w - 1) / w

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for blk := 0; blk < nblocks; blk++ {
		lo := blk * blockLen
		hi := lo + blockLen
		if hi > len(fw) {
			hi = len(fw)
		}
		v := uint8(0)
		if hi > lo {
			v = uint8(entropy(fw[lo:hi]) / 8 * 255)
		}
		img.SetNRGBA(blk%w, blk/w, color.NRGBA{R: v, G: v, B: v, A: 0xFF})
	}
	for _, off := range marks {
		if off < 0 || off >= len(fw) {
			continue
		}
		blk := off / blockLen
		img.SetNRGBA(blk%w, blk/w, markColor)
	}
	return img
}

// entropy returns the Shannon entropy of b in bits per byte (0..8).
func entropy(b []byte) float64 {
	var counts [256]int
	for _, c := range b {
		counts[c]++
	}
	total := float64(len(b))
	e := 0.0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		e -= p * math.Log2(p)
	}
	return e
}

// WriteWebP encodes the heatmap as lossless WebP.
func WriteWebP(w io.Writer, img *image.NRGBA) error {
	return nativewebp.Encode(w, img, nil)
}
