package icon

import (
	"image"

	"github.com/rs/zerolog/log"
)

// Handle owns at most one acquired icon. Replacing it always releases the
// held bitmap before acquiring the next one.
type Handle struct {
	loader Loader
	index  int
	img    image.Image
	held   bool
}

// NewHandle creates an empty handle over loader.
func NewHandle(loader Loader) *Handle {
	return &Handle{loader: loader}
}

// Replace swaps the held icon for the catalog entry at index. If acquiring
// fails the handle is left empty and the error returned.
func (h *Handle) Replace(index int) error {
	h.Release()

	img, err := h.loader.Acquire(index)
	if err != nil {
		return err
	}
	h.index, h.img, h.held = index, img, true
	log.Debug().Int("icon", index).Str("code", Code(index)).Msg("Icon acquired")
	return nil
}

// Release gives the held icon back to the loader. Safe on an empty handle.
func (h *Handle) Release() {
	if !h.held {
		return
	}
	h.loader.Release(h.index)
	h.index, h.img, h.held = 0, nil, false
}

// Image returns the held bitmap, or nil.
func (h *Handle) Image() image.Image {
	return h.img
}

// Index returns the held catalog index and whether one is held.
func (h *Handle) Index() (int, bool) {
	return h.index, h.held
}
