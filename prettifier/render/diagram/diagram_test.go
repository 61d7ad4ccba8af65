// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/framegrace/prettify/prettifier/types"
)

var mermaidBlock = []string{
	"intro",
	"```mermaid",
	"graph TD",
	"  A-->B",
	"```",
	"outro",
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func graphicsConfig(caps ...types.Capability) types.RendererConfig {
	cfg := types.DefaultRendererConfig()
	cfg.Granted = append([]types.Capability{types.CapInlineGraphics}, caps...)
	cfg.CellWidthPx = 8
	cfg.CellHeightPx = 20
	return cfg
}

// krokiServer serves data for /mermaid/png and counts requests.
func krokiServer(t *testing.T, status int, data []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/mermaid/png" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "graph TD\n  A-->B" {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(status)
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// ─── Text fallback ───────────────────────────────────────────────────────────

func TestRender_TextFallback(t *testing.T) {
	r := New(Options{Engine: EngineText}, nil)
	rc, err := r.Render(types.NewBlock(mermaidBlock, "", 0), types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{"intro", " Mermaid  (source)", "  graph TD", "    A-->B", "outro"}
	wantSrc := []int{0, 1, 2, 3, 5}
	if len(rc.Lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(rc.Lines), rc.Text())
	}
	for i := range want {
		if got := rc.Lines[i].PlainText(); got != want[i] {
			t.Errorf("line %d = %q, want %q", i, got, want[i])
		}
		if m := rc.Mapping[i]; !m.HasSource || m.Source != wantSrc[i] {
			t.Errorf("mapping %d = %+v, want %d", i, m, wantSrc[i])
		}
	}
	if len(rc.Graphics) != 0 || rc.Badge != "DG" {
		t.Errorf("graphics=%d badge=%q", len(rc.Graphics), rc.Badge)
	}
}

func TestPlaceholder(t *testing.T) {
	r := New(Options{}, nil)
	rc := r.Placeholder(types.NewBlock(mermaidBlock, "", 0), types.DefaultRendererConfig())
	if !strings.Contains(rc.Lines[1].PlainText(), "rendering") {
		t.Errorf("placeholder header = %q", rc.Lines[1].PlainText())
	}
}

func TestRender_UnknownFenceIsText(t *testing.T) {
	r := New(Options{Engine: EngineText}, nil)
	lines := []string{"```python", "print(1)", "```"}
	rc, err := r.Render(types.NewBlock(lines, "", 0), types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rc.Text() != strings.Join(lines, "\n") {
		t.Errorf("non-diagram fences should pass through:\n%s", rc.Text())
	}
}

// ─── Kroki ───────────────────────────────────────────────────────────────────

func TestRender_Kroki(t *testing.T) {
	srv, hits := krokiServer(t, http.StatusOK, testPNG(t, 32, 40))
	r := New(Options{Engine: EngineKroki, KrokiServer: srv.URL}, nil)

	rc, err := r.Render(types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapNetworkAccess))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("kroki hits = %d", *hits)
	}
	if !strings.Contains(rc.Lines[1].PlainText(), "(rendered)") {
		t.Errorf("header = %q", rc.Lines[1].PlainText())
	}
	if len(rc.Lines) != 5 {
		t.Fatalf("got %d lines, want intro + header + 2 image rows + outro", len(rc.Lines))
	}
	if len(rc.Graphics) != 1 {
		t.Fatalf("graphics = %d", len(rc.Graphics))
	}
	g := rc.Graphics[0]
	if g.Row != 2 || g.WidthCells != 4 || g.HeightCells != 2 {
		t.Errorf("placement = row %d, %dx%d cells", g.Row, g.WidthCells, g.HeightCells)
	}
	if g.PixelWidth != 32 || g.PixelHeight != 40 || len(g.RGBA) != 32*40*4 {
		t.Errorf("pixels = %dx%d (%d bytes)", g.PixelWidth, g.PixelHeight, len(g.RGBA))
	}
	if g.RGBA[0] != 200 || g.RGBA[3] != 255 {
		t.Errorf("first pixel = %v", g.RGBA[:4])
	}
	if m := rc.Mapping[3]; !m.HasSource || m.Source != 3 {
		t.Errorf("image row mapping = %+v", m)
	}
	if m := rc.Mapping[4]; m.Source != 5 {
		t.Errorf("trailing text mapping = %+v", m)
	}
}

func TestRender_KrokiErrors(t *testing.T) {
	srv, _ := krokiServer(t, http.StatusBadRequest, []byte("syntax error"))

	strict := New(Options{Engine: EngineKroki, KrokiServer: srv.URL}, nil)
	_, err := strict.Render(types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapNetworkAccess))
	if !types.IsRenderKind(err, types.NetworkError) {
		t.Fatalf("explicit kroki engine should surface the failure, got %v", err)
	}

	auto := New(Options{Engine: EngineAuto, KrokiServer: srv.URL}, nil)
	rc, err := auto.Render(types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapNetworkAccess))
	if err != nil {
		t.Fatalf("auto engine should fall back, got %v", err)
	}
	if !strings.Contains(rc.Lines[1].PlainText(), "(source)") {
		t.Errorf("header = %q", rc.Lines[1].PlainText())
	}
}

func TestRender_NetworkNotGranted(t *testing.T) {
	srv, hits := krokiServer(t, http.StatusOK, testPNG(t, 8, 8))
	r := New(Options{Engine: EngineAuto, KrokiServer: srv.URL}, nil)
	cfg := graphicsConfig()
	cfg.AllowedCommands = []string{"nothing-here"}

	rc, err := r.Render(types.NewBlock(mermaidBlock, "", 0), cfg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Errorf("kroki contacted without network access")
	}
	if len(rc.Graphics) != 0 {
		t.Errorf("expected text fallback")
	}
}

func TestRender_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	r := New(Options{Engine: EngineKroki, KrokiServer: srv.URL}, nil)
	cfg := graphicsConfig(types.CapNetworkAccess)
	cfg.Timeout = 50 * time.Millisecond
	_, err := r.Render(types.NewBlock(mermaidBlock, "", 0), cfg)
	if !types.IsRenderKind(err, types.Timeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRender_Cancelled(t *testing.T) {
	r := New(Options{Engine: EngineKroki, KrokiServer: "http://127.0.0.1:1"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RenderContext(ctx, types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapNetworkAccess))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

// ─── Local CLI ───────────────────────────────────────────────────────────────

func TestRender_LocalCommand(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	pngPath := filepath.Join(t.TempDir(), "out.png")
	if err := os.WriteFile(pngPath, testPNG(t, 16, 16), 0o600); err != nil {
		t.Fatal(err)
	}
	r := New(Options{Engine: EngineLocal}, nil)
	r.AddLanguage(Language{Tag: "mermaid", DisplayName: "Mermaid", Command: "cat", Args: []string{pngPath}})

	rc, err := r.Render(types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapExternalCommand))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rc.Graphics) != 1 || rc.Graphics[0].PixelWidth != 16 {
		t.Fatalf("graphics = %+v", rc.Graphics)
	}
}

func TestRender_LocalGating(t *testing.T) {
	r := New(Options{Engine: EngineLocal}, nil)
	r.AddLanguage(Language{Tag: "mermaid", DisplayName: "Mermaid", Command: "prettify-no-such-tool"})

	_, err := r.Render(types.NewBlock(mermaidBlock, "", 0), graphicsConfig(types.CapExternalCommand))
	if !types.IsRenderKind(err, types.CommandNotFound) {
		t.Errorf("missing tool: got %v", err)
	}

	cfg := graphicsConfig(types.CapExternalCommand)
	cfg.AllowedCommands = []string{"dot"}
	_, err = r.Render(types.NewBlock(mermaidBlock, "", 0), cfg)
	if !types.IsRenderKind(err, types.RenderFailed) {
		t.Errorf("command outside the allow list: got %v", err)
	}
}

// ─── Disk cache ──────────────────────────────────────────────────────────────

func TestRender_DiskCache(t *testing.T) {
	srv, hits := krokiServer(t, http.StatusOK, testPNG(t, 8, 8))
	path := filepath.Join(t.TempDir(), "cache", "diagrams.db")
	store, err := OpenStore(path, 0)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	cfg := graphicsConfig(types.CapNetworkAccess)
	block := types.NewBlock(mermaidBlock, "", 0)
	for i := 0; i < 2; i++ {
		r := New(Options{Engine: EngineKroki, KrokiServer: srv.URL}, store)
		rc, err := r.Render(block, cfg)
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if len(rc.Graphics) != 1 {
			t.Fatalf("render %d: no graphic", i)
		}
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("kroki hits = %d, want 1 (second render from disk)", n)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "d.db"), 2)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	keys := []string{StoreKey("dot", "a"), StoreKey("dot", "b"), StoreKey("dot", "c")}
	for i, k := range keys {
		if err := store.Put(ctx, k, "dot", []byte{byte(i)}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if n, _ := store.Len(ctx); n != 2 {
		t.Errorf("Len = %d, want 2 after pruning", n)
	}
	data, ok, err := store.Get(ctx, keys[2])
	if err != nil || !ok || len(data) != 1 || data[0] != 2 {
		t.Errorf("newest entry: %v %v %v", data, ok, err)
	}
	if StoreKey("dot", "a") == StoreKey("mermaid", "a") {
		t.Error("key must depend on the tag")
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func TestParseEngine(t *testing.T) {
	tests := map[string]Engine{
		"":              EngineAuto,
		"AUTO":          EngineAuto,
		"local":         EngineLocal,
		"kroki":         EngineKroki,
		"text_fallback": EngineText,
		"none":          EngineText,
		"bogus":         EngineAuto,
	}
	for in, want := range tests {
		if got := ParseEngine(in); got != want {
			t.Errorf("ParseEngine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCapabilities(t *testing.T) {
	if caps := New(Options{Engine: EngineAuto}, nil).Capabilities(); len(caps) != 1 {
		t.Errorf("auto should only require styling: %v", caps)
	}
	if !types.HasCapability(New(Options{Engine: EngineKroki}, nil).Capabilities(), types.CapNetworkAccess) {
		t.Error("kroki engine should require network access")
	}
	if !types.HasCapability(New(Options{Engine: EngineLocal}, nil).Capabilities(), types.CapExternalCommand) {
		t.Error("local engine should require external commands")
	}
}

func TestDecodePNG_Invalid(t *testing.T) {
	if _, _, _, err := DecodePNG([]byte("not a png")); err == nil {
		t.Error("expected decode error")
	}
}
