// Package ppm reads and writes the plain-text (P3) portable pixel map format.
package ppm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"strconv"

	"github.com/spakin/netpbm"

	mandel "github.com/marben/mandel_ppm"
)

const magic = "P3"

func init() {
	image.RegisterFormat("ppm", magic, func(r io.Reader) (image.Image, error) {
		img, err := Decode(r)
		if err != nil {
			return nil, err
		}
		return img, nil
	}, DecodeConfig)
}

// Encode writes img as P3: a header of magic, dimensions and max value
// followed by one "R G B" line per pixel in row-major order.
func Encode(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	b := img.Bounds()

	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, b.Dx(), b.Dy()); err != nil {
		return err
	}

	rgba, _ := img.(*image.RGBA)
	line := make([]byte, 0, len("255 255 255\n"))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var c color.RGBA
			if rgba != nil {
				c = rgba.RGBAAt(x, y)
			} else {
				c = color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			}
			if _, err := bw.Write(appendPixel(line[:0], c)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func appendPixel(b []byte, c color.RGBA) []byte {
	b = strconv.AppendUint(b, uint64(c.R), 10)
	b = append(b, ' ')
	b = strconv.AppendUint(b, uint64(c.G), 10)
	b = append(b, ' ')
	b = strconv.AppendUint(b, uint64(c.B), 10)
	return append(b, '\n')
}

var errFormat = errors.New("ppm: not a P3 pixel map")

// DecodeConfig reads only the header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	cfg, _, err := header(r)
	return cfg, err
}

// Decode reads a P3 pixel map. Channels are rescaled to 8 bits when the
// file's max value is not 255. Images above mandel.MaxPixels are rejected
// before any pixel memory is allocated.
func Decode(r io.Reader) (*image.RGBA, error) {
	cfg, head, err := header(r)
	if err != nil {
		return nil, err
	}

	pnm, err := netpbm.Decode(io.MultiReader(head, r), &netpbm.DecodeOptions{Target: netpbm.PPM, Exact: true})
	if err != nil {
		return nil, fmt.Errorf("ppm: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), pnm, pnm.Bounds().Min, draw.Src)
	return img, nil
}

// header parses and checks the header of r. The returned buffer holds every
// byte consumed from r, so that it can be replayed in front of the rest.
func header(r io.Reader) (image.Config, *bytes.Buffer, error) {
	head := new(bytes.Buffer)
	tee := bufio.NewReader(io.TeeReader(r, head))

	magicBytes, err := tee.Peek(len(magic))
	if err != nil || string(magicBytes) != magic {
		return image.Config{}, nil, errFormat
	}

	cfg, err := netpbm.DecodeConfig(tee)
	if err != nil {
		return image.Config{}, nil, fmt.Errorf("ppm: header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, nil, fmt.Errorf("ppm: bad dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width > mandel.MaxPixels/cfg.Height {
		return image.Config{}, nil, fmt.Errorf("ppm: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, mandel.MaxPixels)
	}
	return cfg, head, nil
}
