// Package noise renders black-and-white static into an RGBA pixel buffer.
package noise

import (
	"math/rand/v2"
	"sync"

	"noise-recorder/internal/canvas"
)

// Surface is the drawable the generator reads its buffer from and commits to.
type Surface interface {
	Width() int
	Height() int
	GetImageData(x, y, w, h int) *canvas.ImageData
	PutImageData(d *canvas.ImageData, dx, dy int)
}

// Generator owns one pixel buffer fetched from a surface and rewrites it on
// every DrawWhiteNoise call. The buffer is allocated once and never resized.
type Generator struct {
	mu      sync.Mutex
	surface Surface
	pixels  *canvas.ImageData
	rng     *rand.Rand
}

// NewGenerator reads the surface's current pixels once and keeps them as the
// working buffer. Whatever alpha the surface holds at this point is preserved
// for the life of the generator. A nil src uses a randomly seeded PCG.
func NewGenerator(s Surface, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{
		surface: s,
		pixels:  s.GetImageData(0, 0, s.Width(), s.Height()),
		rng:     rand.New(src),
	}
}

// DrawWhiteNoise gives every pixel a single grey value, drawn uniformly from
// [0, 255], in its red, green and blue channels, leaves alpha alone, and
// commits the buffer back to the surface.
func (g *Generator) DrawWhiteNoise() {
	g.mu.Lock()
	defer g.mu.Unlock()

	data := g.pixels.Data
	numPixels := g.pixels.NumPixels()
	offset := 0
	for i := 0; i < numPixels; i++ {
		grey := uint8(g.rng.IntN(256))
		data[offset] = grey
		data[offset+1] = grey
		data[offset+2] = grey
		offset += 4 // alpha untouched
	}

	g.surface.PutImageData(g.pixels, 0, 0)
}

// Pixels returns a copy of the working buffer.
func (g *Generator) Pixels() *canvas.ImageData {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := canvas.NewImageData(g.pixels.Width, g.pixels.Height)
	copy(out.Data, g.pixels.Data)
	return out
}
