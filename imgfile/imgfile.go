// Package imgfile saves rendered images, choosing the encoder from the file
// name.
package imgfile

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/marben/mandel_ppm/ppm"
)

// Supported formats.
const (
	PPM  = "ppm"
	PNG  = "png"
	BMP  = "bmp"
	TIFF = "tiff"
)

const zstdSuffix = ".zst"

// Format describes how an image is stored.
type Format struct {
	Name string
	// Zstd wraps the encoded stream in a zstd frame.
	Zstd bool
}

func (f Format) String() string {
	if f.Zstd {
		return f.Name + "+zstd"
	}
	return f.Name
}

// FormatFor derives the format from path: .png, .bmp, .tif and .tiff select
// those encoders, anything else is PPM. A trailing .zst enables compression.
func FormatFor(path string) Format {
	var f Format
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, zstdSuffix) {
		f.Zstd = true
		lower = strings.TrimSuffix(lower, zstdSuffix)
	}

	switch filepath.Ext(lower) {
	case ".png":
		f.Name = PNG
	case ".bmp":
		f.Name = BMP
	case ".tif", ".tiff":
		f.Name = TIFF
	default:
		f.Name = PPM
	}
	return f
}

// ParseFormat accepts a format name as produced by Format.String.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return Format{Name: PPM}, nil
	}
	var f Format
	name, ok := strings.CutSuffix(s, "+zstd")
	f.Zstd = ok
	switch name {
	case PPM, PNG, BMP, TIFF:
		f.Name = name
	default:
		return Format{}, fmt.Errorf("unknown image format %q", s)
	}
	return f, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, f Format, img image.Image) error {
	if !f.Zstd {
		return encode(w, f.Name, img)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := encode(enc, f.Name, img); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

func encode(w io.Writer, name string, img image.Image) error {
	var err error
	switch name {
	case PPM:
		err = ppm.Encode(w, img)
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unknown image format %q", name)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}

// Save writes img to path in the format FormatFor(path) selects. The image
// is written to a temporary file next to path and renamed into place, so
// path never holds a partial image.
func Save(path string, img image.Image) error {
	return WriteFile(path, func(w io.Writer) error {
		return Encode(w, FormatFor(path), img)
	})
}

// WriteFile creates path atomically from whatever write produces.
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err := write(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.Name(), err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", f.Name(), err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}
