// Package canvas provides the drawable surface that noise is rendered onto and
// frames are captured from. Pixels are stored RGBA, 8 bits per channel, in
// row-major order, matching the layout of a 2D canvas ImageData.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// ImageData is a detached copy of a rectangular pixel region.
// Data holds Width*Height*4 bytes in RGBA order.
type ImageData struct {
	Width  int
	Height int
	Data   []uint8
}

// NewImageData allocates a transparent-black region of the given size.
func NewImageData(width, height int) *ImageData {
	return &ImageData{Width: width, Height: height, Data: make([]uint8, width*height*4)}
}

// NumPixels returns Width*Height.
func (d *ImageData) NumPixels() int {
	return d.Width * d.Height
}

// Canvas is a fixed-size RGBA surface safe for concurrent use.
type Canvas struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// New returns a transparent-black canvas. It panics on non-positive sizes.
func New(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("canvas: invalid size %dx%d", width, height))
	}
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// FillRect paints the rectangle with col, clipped to the canvas.
func (c *Canvas) FillRect(x, y, w, h int, col color.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.img.Rect)
	if r.Empty() {
		return
	}
	c.mu.Lock()
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
	c.mu.Unlock()
}

// GetImageData copies the region at (x, y) of size w by h. Pixels outside the
// canvas read as transparent black.
func (c *Canvas) GetImageData(x, y, w, h int) *ImageData {
	out := NewImageData(w, h)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for row := 0; row < h; row++ {
		sy := y + row
		if sy < 0 || sy >= c.img.Rect.Dy() {
			continue
		}
		for col := 0; col < w; col++ {
			sx := x + col
			if sx < 0 || sx >= c.img.Rect.Dx() {
				continue
			}
			si := c.img.PixOffset(sx, sy)
			di := (row*w + col) * 4
			copy(out.Data[di:di+4], c.img.Pix[si:si+4])
		}
	}
	return out
}

// PutImageData writes d onto the canvas with its top-left corner at (dx, dy).
// Pixels that fall outside the canvas are discarded.
func (c *Canvas) PutImageData(d *ImageData, dx, dy int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Fast path for the common full-surface commit.
	if dx == 0 && dy == 0 && d.Width == c.img.Rect.Dx() && d.Height == c.img.Rect.Dy() {
		copy(c.img.Pix, d.Data)
		return
	}
	for row := 0; row < d.Height; row++ {
		ty := dy + row
		if ty < 0 || ty >= c.img.Rect.Dy() {
			continue
		}
		for col := 0; col < d.Width; col++ {
			tx := dx + col
			if tx < 0 || tx >= c.img.Rect.Dx() {
				continue
			}
			si := (row*d.Width + col) * 4
			ti := c.img.PixOffset(tx, ty)
			copy(c.img.Pix[ti:ti+4], d.Data[si:si+4])
		}
	}
}

// Snapshot returns a copy of the whole surface.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := image.NewRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}
