// Package palette holds the 64-colour display palette used by the face.
package palette

import "image/color"

// Each channel of the panel is two bits wide, so every colour is a
// combination of 0x00, 0x55, 0xAA and 0xFF.
var (
	Black         = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	White         = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	LightGray     = color.RGBA{0xAA, 0xAA, 0xAA, 0xFF}
	Blue          = color.RGBA{0x00, 0x00, 0xFF, 0xFF}
	IslamicGreen  = color.RGBA{0x00, 0xAA, 0x00, 0xFF}
	MidnightGreen = color.RGBA{0x00, 0x55, 0x55, 0xFF}
	Clear         = color.RGBA{}
)
