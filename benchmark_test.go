package raypool

import (
	"context"
	"fmt"
	"testing"

	"github.com/gogpu/raypool/raytrace"
)

func BenchmarkRunNotify(b *testing.B) {
	p, err := NewWorkerPool(4)
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = p.Close() }()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fut, err := RunNotify(p, func() int { return i })
		if err != nil {
			b.Fatal(err)
		}
		if _, err := fut.Await(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	sc := &raytrace.Scene{
		Width: 160, Height: 120, FOV: 90, ShadowBias: 1e-9, MaxRecursionDepth: 4,
		Spheres: []raytrace.Sphere{{
			Center: raytrace.V3(0, 0, -5), Radius: 1.5,
			Material: raytrace.Material{Color: raytrace.Color{Red: 1, Green: 1, Blue: 1}, Albedo: 0.5, Reflectivity: 0.4},
		}},
		Lights: []raytrace.Light{{
			Kind: raytrace.LightDirectional, Direction: raytrace.V3(0, -1, -1).Normalize(),
			Color: raytrace.Color{Red: 1, Green: 1, Blue: 1}, Intensity: 5,
		}},
	}
	tracer := raytrace.NewRenderer(sc)

	for _, c := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("concurrency=%d", c), func(b *testing.B) {
			p, err := NewWorkerPool(c)
			if err != nil {
				b.Fatal(err)
			}
			defer func() { _ = p.Close() }()

			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h, err := Render(p, tracer, c)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := h.Wait(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
