package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/marben/mandel_ppm/remote"
	"github.com/marben/mandel_ppm/render"
)

// main starts the render server. Each websocket connection on /ws gets one
// complete image rendered with all local CPUs.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		workers    = flag.Int("workers", 0, "row bands per render (0 = one per CPU)")
		maxRenders = flag.Int("max-renders", remote.DefaultMaxRenders, "renders running at once; other connections wait")
	)
	flag.Parse()

	h := remote.NewHandler(render.Renderer{Workers: *workers}, remote.WithMaxRenders(*maxRenders))
	srv := remote.NewServer(*addr, h)

	log.Printf("listening on ws://%s/ws", *addr)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("httpServer: %w", err)
	}
	return nil
}
