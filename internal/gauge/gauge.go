// Package gauge draws a percentage as a bar of ten equal segments.
package gauge

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/dokzlo13/watchface/internal/palette"
)

const (
	// Segments is the number of blocks a bar is split into.
	Segments = 10
	// separators between Segments blocks, one pixel each
	separators = Segments - 1
)

var (
	// Background fills the part of the bar that is not covered by the value.
	Background color.Color = palette.LightGray
	// Outline is the colour of the separator lines.
	Outline color.Color = palette.Black
)

// SegmentWidth returns the width of one block for a bar of the given width.
// Rounding is towards zero; the leftover pixels stay unused on the right.
func SegmentWidth(width int) int {
	w := (width - separators) / Segments
	if w < 0 {
		return 0
	}
	return w
}

// Clamp limits a raw percentage to [0, 100].
func Clamp(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Draw renders percent into bounds on dst. percent must already be in [0, 100].
// Drawing is deterministic: the same arguments always produce the same pixels.
func Draw(dst draw.Image, bounds image.Rectangle, fg color.Color, percent int) {
	seg := SegmentWidth(bounds.Dx())
	bar := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+seg*Segments+separators, bounds.Max.Y)

	fill(dst, bar, Background)

	offset := 0
	remaining := percent
	for remaining >= 10 {
		fill(dst, image.Rect(bar.Min.X+offset, bar.Min.Y, bar.Min.X+offset+seg, bar.Max.Y), fg)
		remaining -= 10
		offset += seg + 1
	}
	// Partial block; zero width once every decade is spent.
	partial := seg * remaining / 10
	fill(dst, image.Rect(bar.Min.X+offset, bar.Min.Y, bar.Min.X+offset+partial, bar.Max.Y), fg)

	for i := 1; i < Segments; i++ {
		x := bar.Min.X + seg*i + (i - 1)
		fill(dst, image.Rect(x, bar.Min.Y, x+1, bar.Max.Y), Outline)
	}
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}
