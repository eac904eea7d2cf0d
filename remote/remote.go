// Package remote serves complete renders over a websocket and fetches them.
//
// A client sends one JSON Request. The server answers with a single binary
// message holding the encoded image, or a JSON text message carrying an
// error, and closes the connection.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	mandel "github.com/marben/mandel_ppm"
	"github.com/marben/mandel_ppm/imgfile"
	"github.com/marben/mandel_ppm/palette"
)

// MaxRemotePixels bounds the grid a single remote request may ask for.
const MaxRemotePixels = 4096 * 4096

// widest P3 pixel line plus room for the header
const readLimit = int64(MaxRemotePixels*len("255 255 255\n") + 64)

// DefaultMaxRenders is how many renders a Handler runs at once unless
// WithMaxRenders says otherwise. Each render already uses every CPU.
const DefaultMaxRenders = 1

var ErrRemote = errors.New("remote render failed")

type Request struct {
	Geometry mandel.Geometry `json:"geometry"`
	// Format is an imgfile format name such as "ppm" or "png+zstd".
	// Empty means ppm.
	Format string `json:"format,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler renders one image per websocket connection.
type Handler struct {
	renderer  mandel.Renderer
	ramp      palette.Ramp
	maxPixels int
	renders   chan struct{} // one token per running render
}

type Option func(h *Handler)

// WithMaxRenders limits how many connections render at the same time.
// Further connections wait for a slot. n < 1 is treated as 1.
func WithMaxRenders(n int) Option {
	return func(h *Handler) {
		h.renders = make(chan struct{}, max(n, 1))
	}
}

func NewHandler(r mandel.Renderer, opts ...Option) *Handler {
	h := &Handler{
		renderer:  r,
		ramp:      palette.NewRamp(),
		maxPixels: MaxRemotePixels,
		renders:   make(chan struct{}, DefaultMaxRenders),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer c.CloseNow()

	log.Printf("got connection from: %s", r.RemoteAddr)
	ctx := r.Context()

	var req Request
	if err := wsjson.Read(ctx, c, &req); err != nil {
		log.Printf("read request from %s: %v", r.RemoteAddr, err)
		return
	}

	data, err := h.render(ctx, req)
	if err != nil {
		log.Printf("render for %s: %v", r.RemoteAddr, err)
		status := websocket.StatusInternalError
		if errors.Is(err, mandel.ErrInvalidGeometry) {
			status = websocket.StatusPolicyViolation
		}
		if err := wsjson.Write(ctx, c, errorResponse{Error: err.Error()}); err != nil {
			log.Printf("send error to %s: %v", r.RemoteAddr, err)
			return
		}
		c.Close(status, "render failed")
		return
	}

	if err := c.Write(ctx, websocket.MessageBinary, data); err != nil {
		log.Printf("send image to %s: %v", r.RemoteAddr, err)
		return
	}
	log.Printf("sent %d bytes to %s", len(data), r.RemoteAddr)
	c.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) render(ctx context.Context, req Request) ([]byte, error) {
	g := req.Geometry
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.Width > h.maxPixels/g.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds the remote limit of %d pixels", mandel.ErrInvalidGeometry, g.Width, g.Height, h.maxPixels)
	}
	format, err := imgfile.ParseFormat(req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mandel.ErrInvalidGeometry, err)
	}

	select {
	case h.renders <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for render slot: %w", context.Cause(ctx))
	}
	// the slot also covers colouring and encoding, which hold the buffer
	defer func() { <-h.renders }()

	counts, err := h.renderer.Render(g)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	img, err := palette.Colorize(g, counts, h.ramp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imgfile.Encode(&buf, format, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewMux routes /ws to h and lists the named regions on /regions.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/regions", func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string]mandel.Region)
		for _, name := range mandel.RegionNames() {
			out[name], _ = mandel.RegionByName(name)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("regions: %v", err)
		}
	})
	return mux
}

func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewMux(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Fetch asks the server at url for a render and returns the encoded image.
func Fetch(ctx context.Context, url string, req Request) ([]byte, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	defer c.CloseNow()
	c.SetReadLimit(readLimit)

	if err := wsjson.Write(ctx, c, req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	typ, data, err := c.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if typ == websocket.MessageText {
		var resp errorResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode error response: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}

	c.Close(websocket.StatusNormalClosure, "")
	return data, nil
}
