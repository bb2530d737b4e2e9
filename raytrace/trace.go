package raytrace

import "math"

// gamma is the display gamma applied when converting to 8-bit channels.
const gamma = 2.2

// Ray is a half-line from Origin along the unit vector Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// PrimaryRay returns the camera ray through the center of pixel (x, y).
// The field of view spans the image height; the horizontal extent is
// scaled by the aspect ratio.
func PrimaryRay(x, y int, s *Scene) Ray {
	fovAdjustment := math.Tan(s.FOV * math.Pi / 180 / 2)
	aspect := float64(s.Width) / float64(s.Height)
	sensorX := ((float64(x)+0.5)/float64(s.Width)*2 - 1) * aspect * fovAdjustment
	sensorY := (1 - (float64(y)+0.5)/float64(s.Height)*2) * fovAdjustment
	return Ray{
		Direction: Vec3{X: sensorX, Y: sensorY, Z: -1}.Normalize(),
	}
}

// Cast traces r through s and returns its RGBA8 color. Misses return the
// scene background. Alpha is always opaque.
func Cast(s *Scene, r Ray) [4]byte {
	return toRGBA(castRay(s, r, 0))
}

// hit is the nearest intersection along a ray.
type hit struct {
	distance float64
	point    Vec3
	normal   Vec3
	material *Material
}

func castRay(s *Scene, r Ray, depth int) Color {
	if depth >= s.MaxRecursionDepth {
		return Color{}
	}
	h, ok := trace(s, r)
	if !ok {
		return s.Background
	}

	c := shadeDiffuse(s, h)
	if refl := h.material.Reflectivity; refl > 0 {
		bounce := Ray{
			Origin:    h.point.Add(h.normal.Mul(s.ShadowBias)),
			Direction: r.Direction.Reflect(h.normal),
		}
		c = c.Scale(1 - refl).Add(castRay(s, bounce, depth+1).Scale(refl))
	}
	return c
}

// trace finds the nearest intersection of r with any primitive.
func trace(s *Scene, r Ray) (hit, bool) {
	best := hit{distance: math.Inf(1)}
	found := false

	for i := range s.Spheres {
		sp := &s.Spheres[i]
		if d, ok := intersectSphere(sp, r); ok && d < best.distance {
			p := r.Origin.Add(r.Direction.Mul(d))
			best = hit{distance: d, point: p, normal: p.Sub(sp.Center).Normalize(), material: &sp.Material}
			found = true
		}
	}
	for i := range s.Planes {
		pl := &s.Planes[i]
		if d, n, ok := intersectPlane(pl, r); ok && d < best.distance {
			best = hit{distance: d, point: r.Origin.Add(r.Direction.Mul(d)), normal: n, material: &pl.Material}
			found = true
		}
	}
	return best, found
}

func intersectSphere(sp *Sphere, r Ray) (float64, bool) {
	l := sp.Center.Sub(r.Origin)
	adj := l.Dot(r.Direction)
	d2 := l.LengthSq() - adj*adj
	r2 := sp.Radius * sp.Radius
	if d2 > r2 {
		return 0, false
	}
	thc := math.Sqrt(r2 - d2)
	t0, t1 := adj-thc, adj+thc
	if t0 < 0 && t1 < 0 {
		return 0, false
	}
	if t0 < 0 {
		return t1, true
	}
	return t0, true
}

// intersectPlane returns the hit distance and the plane normal oriented
// against the ray.
func intersectPlane(pl *Plane, r Ray) (float64, Vec3, bool) {
	denom := pl.Normal.Dot(r.Direction)
	if math.Abs(denom) < 1e-6 {
		return 0, Vec3{}, false
	}
	d := pl.Origin.Sub(r.Origin).Dot(pl.Normal) / denom
	if d < 0 {
		return 0, Vec3{}, false
	}
	n := pl.Normal
	if denom > 0 {
		n = n.Neg()
	}
	return d, n, true
}

// shadeDiffuse sums Lambertian contributions from every unshadowed light.
func shadeDiffuse(s *Scene, h hit) Color {
	var c Color
	origin := h.point.Add(h.normal.Mul(s.ShadowBias))
	reflected := h.material.Albedo / math.Pi

	for i := range s.Lights {
		l := &s.Lights[i]
		var toLight Vec3
		var intensity, lightDistance float64

		switch l.Kind {
		case LightDirectional:
			toLight = l.Direction.Neg()
			intensity = l.Intensity
			lightDistance = math.Inf(1)
		case LightSpherical:
			v := l.Position.Sub(h.point)
			r2 := v.LengthSq()
			toLight = v.Normalize()
			intensity = l.Intensity / (4 * math.Pi * r2)
			lightDistance = math.Sqrt(r2)
		default:
			continue
		}

		if sh, ok := trace(s, Ray{Origin: origin, Direction: toLight}); ok && sh.distance < lightDistance {
			continue
		}

		power := math.Max(h.normal.Dot(toLight), 0) * intensity
		c = c.Add(h.material.Color.Mul(l.Color).Scale(power * reflected))
	}
	return c
}

func toRGBA(c Color) [4]byte {
	return [4]byte{encode(c.Red), encode(c.Green), encode(c.Blue), 255}
}

// encode gamma-encodes a linear channel and quantizes it to 8 bits.
func encode(v float64) byte {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(math.Pow(v, 1/gamma) * 255)
}
