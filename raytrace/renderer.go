package raytrace

// Renderer binds a Scene to the PrimaryRay and Cast rules so it can be
// handed to raypool.Render.
type Renderer struct {
	scene *Scene
}

// NewRenderer returns a renderer for s. The scene must not be modified while
// a render is in progress.
func NewRenderer(s *Scene) *Renderer {
	return &Renderer{scene: s}
}

// Scene returns the scene being rendered.
func (r *Renderer) Scene() *Scene { return r.scene }

// Width returns the image width in pixels.
func (r *Renderer) Width() int { return r.scene.Width }

// Height returns the image height in pixels.
func (r *Renderer) Height() int { return r.scene.Height }

// PrimaryRay returns the camera ray through pixel (x, y).
func (r *Renderer) PrimaryRay(x, y int) Ray { return PrimaryRay(x, y, r.scene) }

// Cast traces ray and returns the pixel color.
func (r *Renderer) Cast(ray Ray) [4]byte { return Cast(r.scene, ray) }
