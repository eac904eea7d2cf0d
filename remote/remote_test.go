package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/klauspost/compress/zstd"

	mandel "github.com/marben/mandel_ppm"
	"github.com/marben/mandel_ppm/palette"
	"github.com/marben/mandel_ppm/ppm"
	"github.com/marben/mandel_ppm/render"
)

var quiet = log.New(io.Discard, "", 0)

var small = mandel.Geometry{
	Width:        4,
	Height:       2,
	Region:       mandel.Region{Xmin: -1, Xmax: 1, Ymin: -1, Ymax: 1},
	MaxIteration: 5,
}

func startServer(t *testing.T) string {
	t.Helper()
	return startHandler(t, NewHandler(render.Renderer{Workers: 2, Logger: quiet}))
}

func startHandler(t *testing.T, h *Handler) string {
	t.Helper()
	srv := httptest.NewServer(NewMux(h))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func localPPM(t *testing.T, g mandel.Geometry) []byte {
	t.Helper()
	counts, err := render.Renderer{Workers: 1, Logger: quiet}.Render(g)
	if err != nil {
		t.Fatal(err)
	}
	img, err := palette.Colorize(g, counts, palette.NewRamp())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := ppm.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got, err := Fetch(ctx, url+"/ws", Request{Geometry: small})
	if err != nil {
		t.Fatal(err)
	}
	if want := localPPM(t, small); !bytes.Equal(got, want) {
		t.Errorf("remote image differs from local render:\n%s\nwant:\n%s", got, want)
	}
}

func TestFetchCompressed(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data, err := Fetch(ctx, url+"/ws", Request{Geometry: small, Format: "ppm+zstd"})
	if err != nil {
		t.Fatal(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	got, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := localPPM(t, small); !bytes.Equal(got, want) {
		t.Error("decompressed image differs from local render")
	}
}

func TestFetchRejected(t *testing.T) {
	url := startServer(t)

	tests := map[string]Request{
		"invalid geometry": {Geometry: mandel.Geometry{Width: 0, Height: 2, Region: small.Region, MaxIteration: 5}},
		"too large":        {Geometry: mandel.Geometry{Width: 8192, Height: 8192, Region: small.Region, MaxIteration: 5}},
		"unknown format":   {Geometry: small, Format: "gif"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			_, err := Fetch(ctx, url+"/ws", req)
			if !errors.Is(err, ErrRemote) {
				t.Fatalf("err = %v, want ErrRemote", err)
			}
			if !strings.Contains(err.Error(), "invalid geometry") {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestRegions(t *testing.T) {
	srv := httptest.NewServer(NewMux(NewHandler(render.Renderer{Logger: quiet})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/regions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got map[string]mandel.Region
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["spiral-detail"] != mandel.SpiralDetail {
		t.Errorf("spiral-detail = %+v", got["spiral-detail"])
	}
	if len(got) != len(mandel.RegionNames()) {
		t.Errorf("got %d regions", len(got))
	}
}

func TestFetchAboveDefaultReadLimit(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 128x128 P3 is about 200 KiB, well above the websocket default of 32 KiB
	g := small
	g.Width, g.Height = 128, 128
	got, err := Fetch(ctx, url+"/ws", Request{Geometry: g})
	if err != nil {
		t.Fatal(err)
	}
	if want := localPPM(t, g); !bytes.Equal(got, want) {
		t.Errorf("got %d bytes, want %d", len(got), len(want))
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(mandel.Geometry) ([]int, error) {
	return nil, errors.New("out of cores")
}

func TestCloseStatus(t *testing.T) {
	tests := []struct {
		name     string
		renderer mandel.Renderer
		req      Request
		want     websocket.StatusCode
		wantMsg  string
	}{
		{
			name:     "invalid geometry",
			renderer: render.Renderer{Logger: quiet},
			req:      Request{Geometry: mandel.Geometry{Width: 4, Height: 2, Region: small.Region}},
			want:     websocket.StatusPolicyViolation,
			wantMsg:  "invalid geometry",
		},
		{
			name:     "render failure",
			renderer: failingRenderer{},
			req:      Request{Geometry: small},
			want:     websocket.StatusInternalError,
			wantMsg:  "out of cores",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := startHandler(t, NewHandler(tt.renderer))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			c, _, err := websocket.Dial(ctx, url+"/ws", nil)
			if err != nil {
				t.Fatal(err)
			}
			defer c.CloseNow()

			if err := wsjson.Write(ctx, c, tt.req); err != nil {
				t.Fatal(err)
			}

			typ, data, err := c.Read(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if typ != websocket.MessageText || !strings.Contains(string(data), tt.wantMsg) {
				t.Errorf("message = %v %q, want text containing %q", typ, data, tt.wantMsg)
			}

			_, _, err = c.Read(ctx)
			if got := websocket.CloseStatus(err); got != tt.want {
				t.Errorf("close status = %v (err %v), want %v", got, err, tt.want)
			}
		})
	}
}

// gatedRenderer blocks every render until release is closed.
type gatedRenderer struct {
	started chan struct{}
	release chan struct{}

	m            sync.Mutex
	active, peak int
}

func (r *gatedRenderer) Render(g mandel.Geometry) ([]int, error) {
	r.m.Lock()
	r.active++
	r.peak = max(r.peak, r.active)
	r.m.Unlock()

	r.started <- struct{}{}
	<-r.release

	r.m.Lock()
	r.active--
	r.m.Unlock()
	return make([]int, g.Pixels()), nil
}

func TestMaxRenders(t *testing.T) {
	const clients = 3
	gr := &gatedRenderer{
		started: make(chan struct{}, clients),
		release: make(chan struct{}),
	}
	url := startHandler(t, NewHandler(gr, WithMaxRenders(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, clients)
	for range clients {
		go func() {
			_, err := Fetch(ctx, url+"/ws", Request{Geometry: small})
			errs <- err
		}()
	}

	select {
	case <-gr.started:
	case <-ctx.Done():
		t.Fatal("no render started")
	}
	select {
	case <-gr.started:
		t.Fatal("second render started while the first held the only slot")
	case <-time.After(100 * time.Millisecond):
	}
	close(gr.release)

	for range clients {
		if err := <-errs; err != nil {
			t.Errorf("Fetch: %v", err)
		}
	}

	gr.m.Lock()
	defer gr.m.Unlock()
	if gr.peak != 1 {
		t.Errorf("peak concurrent renders = %d, want 1", gr.peak)
	}
}
