// cliclient asks a render server for a complete image and saves the bytes it
// receives.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	mandel "github.com/marben/mandel_ppm"
	"github.com/marben/mandel_ppm/imgfile"
	"github.com/marben/mandel_ppm/internal/geomflag"
	"github.com/marben/mandel_ppm/remote"
)

// the reference 8192x8192 grid is above remote.MaxRemotePixels
var defaultGeometry = mandel.Geometry{
	Width:        2048,
	Height:       2048,
	Region:       mandel.SpiralDetail,
	MaxIteration: mandel.DefaultGeometry.MaxIteration,
}

func main() {
	log.Printf("Starting CLI client...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run() error {
	geom := geomflag.Register(flag.CommandLine, defaultGeometry)
	var (
		url     = flag.String("url", "ws://localhost:8080/ws", "render server websocket endpoint")
		output  = flag.String("o", "mandel.ppm", "output file; the extension selects the format requested from the server")
		timeout = flag.Duration("timeout", 10*time.Minute, "give up after this long")
	)
	flag.Parse()

	g, err := geom.Geometry()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	format := imgfile.FormatFor(*output)
	log.Printf("Requesting %dx%d %s image from %s...", g.Width, g.Height, format, *url)
	data, err := remote.Fetch(ctx, *url, remote.Request{Geometry: g, Format: format.String()})
	if err != nil {
		return fmt.Errorf("remote.Fetch: %w", err)
	}

	err = imgfile.WriteFile(*output, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", *output, err)
	}

	log.Printf("Fully rendered image saved to %q", *output)
	return nil
}
