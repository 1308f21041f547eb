package cookie

import (
	"log/slog"
	"testing"

	"github.com/gogpu/cookie/render"
)

func TestLayoutAtMostOncePerFrame(t *testing.T) {
	tests := []struct {
		name          string
		relayoutFails bool
	}{
		{"relayout succeeds", false},
		{"relayout fails", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			spy := newSpyAtlas(t, 512)
			spy.rejectAll = true
			spy.relayoutFails = tt.relayoutFails
			m := newTestManager(t, testConfig(), WithAtlas(spy))

			m.NewFrame()
			for range 3 {
				if m.ReserveSpace(Planar(newTexture(t, 64, 64))) {
					t.Fatal("ReserveSpace succeeded on a rejecting atlas")
				}
			}
			m.LayoutIfNeeded()
			m.LayoutIfNeeded()
			m.ReserveSpace(Planar(newTexture(t, 64, 64)))
			m.LayoutIfNeeded()

			if spy.relayouts != 1 {
				t.Errorf("relayouts = %d, want 1", spy.relayouts)
			}
			if m.NoMoreSpace() != tt.relayoutFails {
				t.Errorf("NoMoreSpace() = %v, want %v", m.NoMoreSpace(), tt.relayoutFails)
			}
			want := 0
			if tt.relayoutFails {
				want = 1
			}
			if n := logs.count(slog.LevelError, "atlas exhausted"); n != want {
				t.Errorf("exhaustion errors = %d, want %d", n, want)
			}
			st := m.Stats()
			if st.Reservations != 4 || st.FailedReservations != 4 || st.Relayouts != 1 {
				t.Errorf("stats = %s", st)
			}

			// The next frame may repack again.
			m.NewFrame()
			if m.NoMoreSpace() {
				t.Error("NoMoreSpace survived NewFrame")
			}
			m.ReserveSpace(Planar(newTexture(t, 64, 64)))
			m.LayoutIfNeeded()
			if spy.relayouts != 2 {
				t.Errorf("relayouts after a new frame = %d, want 2", spy.relayouts)
			}
		})
	}
}

func TestLayoutNotNeeded(t *testing.T) {
	spy := newSpyAtlas(t, 512)
	m := newTestManager(t, testConfig(), WithAtlas(spy))

	m.NewFrame()
	m.ReserveSpace(Planar(newTexture(t, 64, 64)))
	m.LayoutIfNeeded()
	if spy.relayouts != 0 {
		t.Errorf("relayouts = %d, want 0", spy.relayouts)
	}
}

func TestExhaustionSuppressesMissingReservationWarnings(t *testing.T) {
	logs := captureLogs(t)
	spy := newSpyAtlas(t, 512)
	spy.rejectAll = true
	spy.relayoutFails = true
	m := newTestManager(t, testConfig(), WithAtlas(spy))
	tex := newTexture(t, 64, 64)

	m.NewFrame()
	m.ReserveSpace(Planar(tex))
	m.LayoutIfNeeded()
	if res := m.Fetch(render.NewRecording(), Planar(tex)); !res.IsZero() {
		t.Errorf("Fetch = %+v, want zero", res)
	}
	if n := logs.count(slog.LevelWarn, "without reservation"); n != 0 {
		t.Errorf("missing reservation warnings = %d, want 0 once the atlas is exhausted", n)
	}
}

func TestRelayoutRecoversSpace(t *testing.T) {
	logs := captureLogs(t)
	m := newTestManager(t, Config{AtlasResolution: 512, Padding: NoPadding})

	old := make([]*render.Texture, 4)
	m.NewFrame()
	for i := range old {
		old[i] = newTexture(t, 256, 256)
		if !m.ReserveSpace(Planar(old[i])) {
			t.Fatalf("ReserveSpace(%d) failed", i)
		}
	}
	m.LayoutIfNeeded()
	rec := render.NewRecording()
	for _, tex := range old {
		m.Fetch(rec, Planar(tex))
	}

	// Only one old cookie stays in use: the new one fits after a relayout.
	fresh := newTexture(t, 256, 256)
	m.NewFrame()
	m.ReserveSpace(Planar(old[0]))
	if m.ReserveSpace(Planar(fresh)) {
		t.Fatal("ReserveSpace fit into a full atlas")
	}
	m.LayoutIfNeeded()
	if m.NoMoreSpace() {
		t.Fatal("relayout did not reclaim unused entries")
	}
	for _, tex := range []*render.Texture{old[0], fresh} {
		if res := m.Fetch(render.NewRecording(), Planar(tex)); res.IsZero() {
			t.Errorf("Fetch(%v) = zero after relayout", tex)
		}
	}
	if n := logs.atLeast(slog.LevelWarn); n != 0 {
		t.Errorf("%d warnings or errors logged", n)
	}
}

func TestRelayoutRetiresEvictedEmissive(t *testing.T) {
	m := newTestManager(t, testConfig())
	area := Area(newTexture(t, 64, 64))

	m.NewFrame()
	m.ReserveSpace(area)
	m.LayoutIfNeeded()
	res := m.Fetch(render.NewRecording(), area)
	if res.Emissive == nil {
		t.Fatal("area fetch returned no emissive texture")
	}
	before := m.MemoryStats().TextureCount

	// An atlas-sized cookie evicts the area cookie, which is no longer used.
	big := Planar(newTexture(t, 512, 512))
	for range DefaultFramesInFlight + 2 {
		m.NewFrame()
		m.ReserveSpace(big)
		m.LayoutIfNeeded()
	}

	if _, ok := m.Emissive(area); ok {
		t.Error("emissive texture still held after its cookie was evicted")
	}
	if !res.Emissive.IsReleased() {
		t.Error("emissive texture of an evicted cookie not destroyed")
	}
	if after := m.MemoryStats().TextureCount; after != before-1 {
		t.Errorf("TextureCount = %d, want %d", after, before-1)
	}
}

func TestReserveTexture(t *testing.T) {
	m := newTestManager(t, testConfig())
	tex := newTexture(t, 128, 64)

	m.NewFrame()
	if !m.ReserveTexture(tex) {
		t.Fatal("ReserveTexture failed")
	}
	res := m.Fetch(render.NewRecording(), Planar(tex))
	// 128x64 minus a 2-texel border in a 512 atlas.
	if res.ScaleBias[0] != 124.0/512 || res.ScaleBias[1] != 60.0/512 {
		t.Errorf("scale = %v", res.ScaleBias)
	}
}

func TestFootprint(t *testing.T) {
	a := newTexture(t, 128, 16)
	b := newTexture(t, 32, 64)

	tests := []struct {
		name  string
		req   Request
		wantW int
		wantH int
	}{
		{"planar", Planar(a), 128, 16},
		{"pair takes the max per axis", PlanarWithIES(a, b), 128, 64},
		{"pair is symmetric", AreaWithIES(b, a), 128, 64},
		{"cube at configured resolution", Cube(newCubeTexture(t, 64)), 256, 256},
		{"cube at face size", Cube(newCubeTexture(t, 256)), 512, 512},
		{"cube pair", CubeWithIES(newCubeTexture(t, 16), newCubeTexture(t, 200)), 400, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.req.footprint(128)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("footprint = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
