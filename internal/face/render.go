package face

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/dokzlo13/watchface/internal/fonts"
	"github.com/dokzlo13/watchface/internal/gauge"
	"github.com/dokzlo13/watchface/internal/palette"
)

// Marker glyphs from the icon font.
const (
	peerMarkerGlyph  = "a"
	localMarkerGlyph = "b"
	chargingGlyph    = "c"
)

type align uint8

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// Renderer composes a frame from a State.
type Renderer struct {
	layout Layout
	fonts  *fonts.Set
}

// NewRenderer creates a renderer for layout.
func NewRenderer(layout Layout, set *fonts.Set) *Renderer {
	return &Renderer{layout: layout, fonts: set}
}

// Draw repaints every region of s onto frame, back to front. The whole frame
// is recomposed because regions overlap (text over the temperature band,
// charging glyphs over the gauges).
func (r *Renderer) Draw(frame *image.RGBA, s *State) {
	l := r.layout
	snap := s.Sync.Snapshot()

	fill(frame, l.Screen, palette.Black)
	fill(frame, l.Rect(RegionTemperatureBackground), palette.MidnightGreen)

	drawText(frame, l.Rect(RegionTemperature), snap.Temperature.Text(), r.fonts.Temperature, palette.White, alignLeft)

	if img := s.Sync.IconHandle().Image(); img != nil && snap.Icon.Valid {
		dst := l.Rect(RegionIcon)
		draw.Draw(frame, dst, img, img.Bounds().Min, draw.Over)
	}

	drawText(frame, l.Rect(RegionDate), s.DateText, r.fonts.Date, palette.White, alignCenter)
	drawText(frame, l.Rect(RegionTime), s.TimeText, r.fonts.Time, palette.White, alignCenter)

	gauge.Draw(frame, l.Rect(RegionLocalGauge), palette.Blue, s.LocalBattery)
	gauge.Draw(frame, l.Rect(RegionPeerGauge), palette.IslamicGreen, snap.PeerBattery)

	drawText(frame, l.Rect(RegionLocalMarker), localMarkerGlyph, r.fonts.Glyph, palette.White, alignLeft)
	drawText(frame, l.Rect(RegionPeerMarker), peerMarkerGlyph, r.fonts.Glyph, palette.White, alignLeft)

	if s.LocalCharging {
		drawText(frame, l.Rect(RegionLocalCharging), chargingGlyph, r.fonts.Glyph, palette.Black, alignRight)
	}
	if snap.PeerCharging {
		drawText(frame, l.Rect(RegionPeerCharging), chargingGlyph, r.fonts.Glyph, palette.Black, alignRight)
	}
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawText draws text inside bounds, clipped to it, with the baseline one
// ascent below the top edge.
func drawText(frame *image.RGBA, bounds image.Rectangle, text string, face font.Face, c color.Color, a align) {
	if text == "" || bounds.Empty() {
		return
	}
	dst := frame.SubImage(bounds).(*image.RGBA)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(text).Round()

	x := bounds.Min.X
	switch a {
	case alignCenter:
		x += (bounds.Dx() - width) / 2
	case alignRight:
		x = bounds.Max.X - width
	}

	d.Dot = fixed.P(x, bounds.Min.Y+face.Metrics().Ascent.Round())
	d.DrawString(text)
}
