// Package geomflag binds a mandel.Geometry to command line flags.
package geomflag

import (
	"flag"
	"fmt"
	"strings"

	mandel "github.com/marben/mandel_ppm"
)

type Flags struct {
	fs     *flag.FlagSet
	g      mandel.Geometry
	region string
}

// Register adds -width, -height, -xmin, -xmax, -ymin, -ymax, -max-iteration
// and -region to fs with defaults taken from d.
func Register(fs *flag.FlagSet, d mandel.Geometry) *Flags {
	f := &Flags{fs: fs, g: d}

	fs.IntVar(&f.g.Width, "width", d.Width, "image width in pixels")
	fs.IntVar(&f.g.Height, "height", d.Height, "image height in pixels")
	fs.Float64Var(&f.g.Xmin, "xmin", d.Xmin, "smallest real part")
	fs.Float64Var(&f.g.Xmax, "xmax", d.Xmax, "largest real part")
	fs.Float64Var(&f.g.Ymin, "ymin", d.Ymin, "smallest imaginary part")
	fs.Float64Var(&f.g.Ymax, "ymax", d.Ymax, "largest imaginary part")
	fs.IntVar(&f.g.MaxIteration, "max-iteration", d.MaxIteration, "escape iteration cap")
	fs.StringVar(&f.region, "region", "", "named region ("+strings.Join(mandel.RegionNames(), ", ")+"); -xmin etc. override it")
	return f
}

// Geometry returns the configured geometry. Call after fs.Parse.
func (f *Flags) Geometry() (mandel.Geometry, error) {
	g := f.g
	if f.region == "" {
		return g, g.Validate()
	}

	r, ok := mandel.RegionByName(f.region)
	if !ok {
		return mandel.Geometry{}, fmt.Errorf("unknown region %q", f.region)
	}

	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if !set["xmin"] {
		g.Xmin = r.Xmin
	}
	if !set["xmax"] {
		g.Xmax = r.Xmax
	}
	if !set["ymin"] {
		g.Ymin = r.Ymin
	}
	if !set["ymax"] {
		g.Ymax = r.Ymax
	}
	return g, g.Validate()
}
