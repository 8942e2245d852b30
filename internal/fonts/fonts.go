// Package fonts loads the faces used for the text regions of the watch face.
package fonts

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Set groups the faces for every text region.
type Set struct {
	Time        font.Face
	Date        font.Face
	Temperature font.Face
	Glyph       font.Face // single-character markers
}

// Sizes in pixels at 72 DPI.
const (
	timeSize        = 40
	dateSize        = 14
	temperatureSize = 26
)

// Load parses the bundled Go fonts.
func Load() (*Set, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}

	timeFace, err := newFace(bold, timeSize)
	if err != nil {
		return nil, err
	}
	dateFace, err := newFace(bold, dateSize)
	if err != nil {
		return nil, err
	}
	tempFace, err := newFace(regular, temperatureSize)
	if err != nil {
		return nil, err
	}

	return &Set{
		Time:        timeFace,
		Date:        dateFace,
		Temperature: tempFace,
		Glyph:       basicfont.Face7x13,
	}, nil
}

// Basic returns a set that uses the fixed 7x13 bitmap face everywhere. It
// needs no parsing and is used by tests.
func Basic() *Set {
	return &Set{
		Time:        basicfont.Face7x13,
		Date:        basicfont.Face7x13,
		Temperature: basicfont.Face7x13,
		Glyph:       basicfont.Face7x13,
	}
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %.0fpx face: %w", size, err)
	}
	return face, nil
}
