package render

import (
	"fmt"
	"log"
	"sync"

	mandel "github.com/marben/mandel_ppm"
)

// Renderer evaluates a geometry on a fixed pool of goroutines, one per row band.
type Renderer struct {
	// Workers is the number of bands; values below 1 mean Workers().
	Workers int

	// OnBandRender, if set, is called from the worker goroutine before it
	// starts its band.
	OnBandRender func(band mandel.Band)

	// Logger receives progress lines. nil means log.Default().
	Logger *log.Logger
}

var _ mandel.Renderer = Renderer{}

// Render evaluates g with Workers() goroutines.
func Render(g mandel.Geometry) ([]int, error) {
	return Renderer{}.Render(g)
}

// Render fills a row-major buffer of g.Width*g.Height escape counts.
// Every band writes only to its own sub-slice; the buffer is returned after
// all workers have finished.
func (r Renderer) Render(g mandel.Geometry) ([]int, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	// Validate caps the size; running out of memory past that is fatal
	buf := make([]int, g.Pixels())

	n := r.Workers
	if n < 1 {
		n = Workers()
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := newProgress(g.Height, logger)

	var wg sync.WaitGroup
	for _, band := range SplitRows(g.Height, n) {
		// full slice expression keeps a band from appending into its neighbour
		dst := buf[band.Start*g.Width : band.End*g.Width : band.End*g.Width]

		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.OnBandRender != nil {
				r.OnBandRender(band)
			}
			RenderBand(g, band, dst)
			p.bandFinished(band)
		}()
	}
	wg.Wait()

	return buf, nil
}

// RenderBand writes the escape counts of band's rows into dst, which must
// hold band.Rows()*g.Width entries.
func RenderBand(g mandel.Geometry, band mandel.Band, dst []int) {
	if len(dst) != band.Rows()*g.Width {
		panic(fmt.Sprintf("band %s needs %d cells, got %d", band, band.Rows()*g.Width, len(dst)))
	}

	i := 0
	for y := band.Start; y < band.End; y++ {
		for x := range g.Width {
			dst[i] = Escape(g.PixelToPlane(x, y), g.MaxIteration)
			i++
		}
	}
}

type progress struct {
	totalRows    int
	finishedRows int
	logger       *log.Logger
	m            sync.Mutex
}

func newProgress(rows int, logger *log.Logger) *progress {
	return &progress{totalRows: rows, logger: logger}
}

func (p *progress) bandFinished(band mandel.Band) {
	p.m.Lock()
	p.finishedRows += band.Rows()
	done := p.finished()
	p.m.Unlock()

	p.logger.Printf("%s done, finished: %.2f", band, done)
}

func (p *progress) finished() float32 {
	if p.totalRows == 0 {
		return 1
	}
	return float32(p.finishedRows) / float32(p.totalRows)
}
