package mandel

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Region within the Mandelbrot set
type Region struct {
	Xmin float64 `json:"xmin"`
	Xmax float64 `json:"xmax"`
	Ymin float64 `json:"ymin"`
	Ymax float64 `json:"ymax"`
}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Spiral Detail – narrow window on the spiral arm next to Seahorse Valley
	SpiralDetail = Region{
		Xmin: -0.7445,
		Xmax: -0.7425,
		Ymin: 0.1304,
		Ymax: 0.1334,
	}

	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{
		Xmin: -0.8,
		Xmax: -0.7,
		Ymin: 0.05,
		Ymax: 0.15,
	}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{
		Xmin: -1.85,
		Xmax: -1.75,
		Ymin: -0.10,
		Ymax: -0.02,
	}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{
		Xmin: -0.7435,
		Xmax: -0.7420,
		Ymin: 0.1310,
		Ymax: 0.1325,
	}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{
		Xmin: -0.7480,
		Xmax: -0.7450,
		Ymin: 0.0950,
		Ymax: 0.0980,
	}

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = Region{
		Xmin: -0.7400,
		Xmax: -0.7350,
		Ymin: 0.1800,
		Ymax: 0.1850,
	}

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	MinibrotInMiniSpiral = Region{
		Xmin: -1.7390,
		Xmax: -1.7375,
		Ymin: -0.0235,
		Ymax: -0.0220,
	}
)

var regions = map[string]Region{
	"spiral-detail":           SpiralDetail,
	"seahorse-valley":         SeahorseValley,
	"elephant-valley":         ElephantValley,
	"spiral-minibrot":         SpiralMinibrot,
	"triple-spiral":           TripleSpiral,
	"valley-of-the-dragon":    ValleyOfTheDragon,
	"minibrot-in-mini-spiral": MinibrotInMiniSpiral,
}

// RegionByName looks up one of the landmark regions above.
func RegionByName(name string) (Region, bool) {
	r, ok := regions[name]
	return r, ok
}

// RegionNames lists the names accepted by RegionByName in sorted order.
func RegionNames() []string {
	names := make([]string, 0, len(regions))
	for n := range regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MaxPixels bounds the size of the iteration buffer a single render may allocate.
const MaxPixels = 1 << 30

var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry describes one render: the pixel grid, the part of the complex
// plane it covers and the escape cap.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Region
	MaxIteration int `json:"max_iteration"`
}

// DefaultGeometry reproduces the reference 8192x8192 render.
var DefaultGeometry = Geometry{
	Width:        8192,
	Height:       8192,
	Region:       SpiralDetail,
	MaxIteration: 20,
}

// Pixels is the length of the iteration buffer for g.
func (g Geometry) Pixels() int {
	return g.Width * g.Height
}

// PixelToPlane maps pixel (x, y) linearly onto the region.
// x == 0 yields Xmin; x == Width would yield Xmax but is never a pixel.
func (g Geometry) PixelToPlane(x, y int) complex128 {
	re := float64(x)*(g.Xmax-g.Xmin)/float64(g.Width) + g.Xmin
	im := float64(y)*(g.Ymax-g.Ymin)/float64(g.Height) + g.Ymin
	return complex(re, im)
}

func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidGeometry, g.Width, g.Height)
	}
	if g.Width > MaxPixels/g.Height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidGeometry, g.Width, g.Height, MaxPixels)
	}
	for _, v := range []float64{g.Xmin, g.Xmax, g.Ymin, g.Ymax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: region %+v is not finite", ErrInvalidGeometry, g.Region)
		}
	}
	if g.Xmin >= g.Xmax || g.Ymin >= g.Ymax {
		return fmt.Errorf("%w: empty region %+v", ErrInvalidGeometry, g.Region)
	}
	if g.MaxIteration < 1 {
		return fmt.Errorf("%w: max iteration %d", ErrInvalidGeometry, g.MaxIteration)
	}
	return nil
}

// Band is a half-open range of rows [Start, End) owned by one worker.
type Band struct {
	Start, End int
}

func (b Band) Rows() int {
	return b.End - b.Start
}

func (b Band) String() string {
	return fmt.Sprintf("rows [%d,%d)", b.Start, b.End)
}
