package icon

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dokzlo13/watchface/internal/palette"
)

// Size is the edge length of an icon bitmap.
const Size = 50

// ErrUnknownIcon is returned for an index outside the catalog.
var ErrUnknownIcon = errors.New("icon: index outside catalog")

// Loader is the bitmap resource service. Every successful Acquire is paired
// with exactly one Release of the same index.
type Loader interface {
	Acquire(index int) (image.Image, error)
	Release(index int)
}

// FSLoader reads <dir>/<code>.png. Decoded bitmaps stay in a small LRU so
// day/night flips do not hit the disk every time.
type FSLoader struct {
	dir   string
	cache gcache.Cache
	live  map[int]int
}

// NewFSLoader creates a loader for icons stored in dir.
func NewFSLoader(dir string, cacheSize int) *FSLoader {
	l := &FSLoader{
		dir:  dir,
		live: make(map[int]int),
	}
	l.cache = gcache.New(cacheSize).
		LRU().
		LoaderFunc(func(key interface{}) (interface{}, error) {
			return l.decode(key.(int))
		}).
		Build()
	return l
}

// Verify checks that every catalog entry has a readable file.
func (l *FSLoader) Verify() error {
	for i := range catalog {
		if _, err := os.Stat(l.path(i)); err != nil {
			return fmt.Errorf("icon %s: %w", Code(i), err)
		}
	}
	return nil
}

// Acquire returns the bitmap for index.
func (l *FSLoader) Acquire(index int) (image.Image, error) {
	if !Valid(int32(index)) {
		return nil, ErrUnknownIcon
	}
	v, err := l.cache.Get(index)
	if err != nil {
		return nil, err
	}
	l.live[index]++
	return v.(image.Image), nil
}

// Release drops one reference taken by Acquire.
func (l *FSLoader) Release(index int) {
	if l.live[index] == 0 {
		log.Warn().Int("icon", index).Msg("Release of an icon that is not held")
		return
	}
	l.live[index]--
	if l.live[index] == 0 {
		delete(l.live, index)
	}
}

// Live returns the number of outstanding references.
func (l *FSLoader) Live() int {
	n := 0
	for _, c := range l.live {
		n += c
	}
	return n
}

func (l *FSLoader) path(index int) string {
	return filepath.Join(l.dir, Code(index)+".png")
}

func (l *FSLoader) decode(index int) (image.Image, error) {
	f, err := os.Open(l.path(index))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", l.path(index), err)
	}
	log.Debug().Str("icon", Code(index)).Msg("Decoded icon bitmap")
	return img, nil
}

// BuiltinLoader draws a labelled placeholder for each condition code. It is
// used when no icon directory is configured.
type BuiltinLoader struct {
	live int
}

func (b *BuiltinLoader) Acquire(index int) (image.Image, error) {
	if !Valid(int32(index)) {
		return nil, ErrUnknownIcon
	}
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(img, image.Rect(8, 8, Size-8, Size-8), image.NewUniform(palette.LightGray), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(palette.Black), Face: face}
	w := d.MeasureString(Code(index)).Round()
	d.Dot = fixed.P((Size-w)/2, Size/2+face.Metrics().Ascent.Round()/2)
	d.DrawString(Code(index))

	b.live++
	return img, nil
}

func (b *BuiltinLoader) Release(int) {
	if b.live > 0 {
		b.live--
	}
}
