// Command cookiedemo drives a cookie manager through a few simulated frames
// and prints what each frame recorded.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/cookie"
	"github.com/gogpu/cookie/render"
)

func main() {
	var (
		resolution = flag.Int("atlas", 1024, "atlas resolution")
		frames     = flag.Int("frames", 4, "frames to simulate")
		lights     = flag.Int("lights", 6, "lights per kind")
		hdr        = flag.Bool("hdr", false, "use a 16-bit float atlas")
		verbose    = flag.Bool("v", false, "log debug diagnostics")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	cookie.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := cookie.DefaultConfig()
	cfg.AtlasResolution = *resolution
	if *hdr {
		cfg.Format = cookie.FormatR16G16B16A16
	}

	reqs, err := scene(*lights)
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}

	m, err := cookie.NewManager(nil, cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer m.Release()

	rec := render.NewRecording()
	for frame := range *frames {
		// Every other frame one cookie changes.
		if frame%2 == 1 {
			reqs[frame%len(reqs)].Cookie.MarkUpdated()
		}

		m.NewFrame()
		for _, req := range reqs {
			m.ReserveSpace(req)
		}
		m.LayoutIfNeeded()

		rec.Reset()
		zero := 0
		for _, req := range reqs {
			if m.Fetch(rec, req).IsZero() {
				zero++
			}
		}
		fmt.Printf("frame %d: %d commands, %d cookies without space, %s\n",
			frame, rec.Len(), zero, m.Stats())
	}
	fmt.Println(m.MemoryStats())
}

// scene returns planar, area and cube requests, some masked by IES
// profiles.
func scene(n int) ([]cookie.Request, error) {
	var reqs []cookie.Request
	ies, err := texture(64, 64, render.Dimension2D)
	if err != nil {
		return nil, err
	}
	iesCube, err := texture(32, 32, render.DimensionCube)
	if err != nil {
		return nil, err
	}

	for i := range n {
		size := 32 << (i % 4)
		planar, err := texture(size, size, render.Dimension2D)
		if err != nil {
			return nil, err
		}
		area, err := texture(size*2, size, render.Dimension2D)
		if err != nil {
			return nil, err
		}
		cube, err := texture(size, size, render.DimensionCube)
		if err != nil {
			return nil, err
		}

		if i%2 == 0 {
			reqs = append(reqs, cookie.Planar(planar), cookie.Area(area), cookie.Cube(cube))
		} else {
			reqs = append(reqs, cookie.PlanarWithIES(planar, ies), cookie.AreaWithIES(area, ies), cookie.CubeWithIES(cube, iesCube))
		}
	}
	return reqs, nil
}

func texture(w, h int, dim render.Dimension) (*render.Texture, error) {
	return render.NewTexture(render.TextureDescriptor{
		Label:         fmt.Sprintf("%s %dx%d", dim, w, h),
		Width:         w,
		Height:        h,
		MipLevelCount: render.MipCount(w, h),
		Dimension:     dim,
	})
}
