package cookie

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cookie/atlas"
	"github.com/gogpu/cookie/render"
)

// mockDevice implements gpucontext.Device for testing.
type mockDevice struct {
	polls     int
	waitPolls int
}

func (m *mockDevice) Poll(wait bool) {
	m.polls++
	if wait {
		m.waitPolls++
	}
}
func (m *mockDevice) Destroy() {}

// mockQueue implements gpucontext.Queue for testing.
type mockQueue struct{}

// mockAdapter implements gpucontext.Adapter for testing.
type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct {
	device *mockDevice
}

func (m *mockProvider) Device() gpucontext.Device             { return m.device }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "mock", Type: gpucontext.AdapterTypeSoftware}
}

// countingHandler records every log record it receives.
type countingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

// count returns the number of records at level whose message contains msg.
func (h *countingHandler) count(level slog.Level, msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && strings.Contains(r.Message, msg) {
			n++
		}
	}
	return n
}

func (h *countingHandler) atLeast(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level >= level {
			n++
		}
	}
	return n
}

// captureLogs routes the package logger to a counting handler for the
// duration of the test.
func captureLogs(t *testing.T) *countingHandler {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	h := &countingHandler{}
	SetLogger(slog.New(h))
	return h
}

func fakeCompiler(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

// brokenFilterCompiler fails the filter kernels only.
func brokenFilterCompiler(wgsl string) ([]byte, error) {
	if strings.Contains(wgsl, "Separable Gaussian") {
		return nil, errors.New("filter.wgsl: syntax error")
	}
	return fakeCompiler(wgsl)
}

func testConfig() Config {
	return Config{AtlasResolution: 512, CubeResolution: 128}
}

func newTestManager(t *testing.T, cfg Config, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithShaderCompiler(fakeCompiler)}, opts...)
	m, err := NewManager(nil, cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Release)
	return m
}

func newTexture(t *testing.T, w, h int) *render.Texture {
	t.Helper()
	tex, err := render.NewTexture(render.TextureDescriptor{Width: w, Height: h, MipLevelCount: render.MipCount(w, h)})
	if err != nil {
		t.Fatalf("NewTexture(%d, %d): %v", w, h, err)
	}
	return tex
}

func newCubeTexture(t *testing.T, size int) *render.Texture {
	t.Helper()
	tex, err := render.NewTexture(render.TextureDescriptor{Width: size, Height: size, Dimension: render.DimensionCube})
	if err != nil {
		t.Fatalf("NewTexture(cube %d): %v", size, err)
	}
	return tex
}

func countCommands[T render.Command](rec *render.Recording) int {
	n := 0
	for _, cmd := range rec.Commands {
		if _, ok := cmd.(T); ok {
			n++
		}
	}
	return n
}

// atlasBlits returns the blits writing into dst.
func atlasBlits(rec *render.Recording, dst *render.Texture) []*render.Blit {
	var blits []*render.Blit
	for _, cmd := range rec.Commands {
		if b, ok := cmd.(*render.Blit); ok && b.Target == dst {
			blits = append(blits, b)
		}
	}
	return blits
}

// spyAtlas wraps an atlas, counting calls and optionally forcing results.
type spyAtlas struct {
	*atlas.Atlas

	calls     int
	relayouts int

	// rejectAll makes every reservation fail.
	rejectAll bool
	// relayoutFails makes every relayout fail.
	relayoutFails bool
}

func newSpyAtlas(t *testing.T, size int) *spyAtlas {
	t.Helper()
	dev := render.NewDevice(nil, render.DeviceConfig{})
	a, err := atlas.New(dev, atlas.Config{Width: size, Height: size, MipLevels: DefaultLastValidMip + 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Release)
	return &spyAtlas{Atlas: a}
}

func (s *spyAtlas) ReserveSpace(id atlas.ID, w, h int) bool {
	s.calls++
	if s.rejectAll {
		return false
	}
	return s.Atlas.ReserveSpace(id, w, h)
}

func (s *spyAtlas) RelayoutEntries() bool {
	s.calls++
	s.relayouts++
	if s.relayoutFails {
		return false
	}
	return s.Atlas.RelayoutEntries()
}

func (s *spyAtlas) IsCached(id atlas.ID) (mgl32.Vec4, bool) {
	s.calls++
	return s.Atlas.IsCached(id)
}

func (s *spyAtlas) NeedsUpdate(id atlas.ID, needMips bool, sources ...*render.Texture) bool {
	s.calls++
	return s.Atlas.NeedsUpdate(id, needMips, sources...)
}
