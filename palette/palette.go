// Package palette maps escape counts onto the fixed greyscale ramp used for
// every render.
package palette

import (
	"fmt"
	"image"
	"image/color"

	mandel "github.com/marben/mandel_ppm"
)

const (
	// RampLength is the number of entries in the ramp.
	RampLength = 100

	haloHead = 50
	fadeLen  = 45
)

var white = color.RGBA{255, 255, 255, 255}

// Ramp is an ordered colour lookup table. It is never modified after NewRamp.
type Ramp []color.RGBA

// NewRamp builds the 100 entry ramp: 50 white entries, a 45 step fade from
// white to black, then 5 more white entries.
func NewRamp() Ramp {
	r := make(Ramp, 0, RampLength)
	for range haloHead {
		r = append(r, white)
	}
	for i := range fadeLen {
		v := uint8(255 - 255*i/(fadeLen-1))
		r = append(r, color.RGBA{v, v, v, 255})
	}
	for len(r) < RampLength {
		r = append(r, white)
	}
	return r
}

// Index picks the ramp entry for escape count v: v is reduced mod 256,
// scaled by 1/255 and stretched over the ramp.
func (r Ramp) Index(v int) int {
	v %= 256
	if v < 0 {
		v += 256
	}
	norm := float64(v) / 255
	return int(norm * float64(len(r)-1))
}

func (r Ramp) Color(v int) color.RGBA {
	return r[r.Index(v)]
}

// Colorize turns a complete row-major iteration buffer into an image.
func Colorize(g mandel.Geometry, counts []int, r Ramp) (*image.RGBA, error) {
	if len(counts) != g.Pixels() {
		return nil, fmt.Errorf("colorize: %d counts for a %dx%d grid", len(counts), g.Width, g.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := range g.Height {
		row := counts[y*g.Width : (y+1)*g.Width]
		for x, v := range row {
			img.SetRGBA(x, y, r.Color(v))
		}
	}
	return img, nil
}
