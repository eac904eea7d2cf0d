// Command mandel renders the Mandelbrot set into an image file.
//
// Every parameter defaults to the reference render: 8192x8192 pixels of the
// spiral detail region, 20 iterations, written as a P3 pixel map.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	mandel "github.com/marben/mandel_ppm"
	"github.com/marben/mandel_ppm/imgfile"
	"github.com/marben/mandel_ppm/internal/geomflag"
	"github.com/marben/mandel_ppm/palette"
	"github.com/marben/mandel_ppm/render"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("mandel", flag.ContinueOnError)
	geom := geomflag.Register(fs, mandel.DefaultGeometry)
	var (
		workers = fs.Int("workers", 0, "number of row bands rendered in parallel (0 = one per CPU)")
		output  = fs.String("o", "mandelbrot_set.ppm", "output file; .png, .bmp, .tif select other encoders, a trailing .zst compresses")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected arguments: %q", fs.Args())
	}

	g, err := geom.Geometry()
	if err != nil {
		return err
	}

	// the ramp is fixed before any worker starts
	ramp := palette.NewRamp()

	r := render.Renderer{Workers: *workers}
	if r.Workers < 1 {
		r.Workers = render.Workers()
	}

	log.Printf("rendering %dx%d, %d iterations, %d workers", g.Width, g.Height, g.MaxIteration, r.Workers)
	start := time.Now()
	counts, err := r.Render(g)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Printf("render took %s", time.Since(start))

	img, err := palette.Colorize(g, counts, ramp)
	if err != nil {
		return err
	}

	if err := imgfile.Save(*output, img); err != nil {
		return fmt.Errorf("save %q: %w", *output, err)
	}
	log.Printf("saved %s to %q", imgfile.FormatFor(*output), *output)
	return nil
}
