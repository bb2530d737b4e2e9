package raytrace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidScene is wrapped by validation errors from Decode and Validate.
var ErrInvalidScene = errors.New("raytrace: invalid scene")

// Default values applied by Decode when a field is omitted.
const (
	DefaultFOV               = 90.0
	DefaultShadowBias        = 1e-9
	DefaultMaxRecursionDepth = 10
)

// Color is a linear RGB color with channels nominally in [0, 1].
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Add returns the channel-wise sum.
func (c Color) Add(o Color) Color {
	return Color{Red: c.Red + o.Red, Green: c.Green + o.Green, Blue: c.Blue + o.Blue}
}

// Mul returns the channel-wise product.
func (c Color) Mul(o Color) Color {
	return Color{Red: c.Red * o.Red, Green: c.Green * o.Green, Blue: c.Blue * o.Blue}
}

// Scale multiplies every channel by s.
func (c Color) Scale(s float64) Color {
	return Color{Red: c.Red * s, Green: c.Green * s, Blue: c.Blue * s}
}

// Material describes how a surface reflects light.
type Material struct {
	Color Color `json:"color"`

	// Albedo is the fraction of incoming light diffusely reflected.
	Albedo float64 `json:"albedo"`

	// Reflectivity in [0, 1] blends in the mirror reflection.
	Reflectivity float64 `json:"reflectivity"`
}

// Sphere is a sphere primitive.
type Sphere struct {
	Center   Vec3     `json:"center"`
	Radius   float64  `json:"radius"`
	Material Material `json:"material"`
}

// Plane is an infinite plane through Origin with the given Normal.
type Plane struct {
	Origin   Vec3     `json:"origin"`
	Normal   Vec3     `json:"normal"`
	Material Material `json:"material"`
}

// LightKind selects how a Light is interpreted.
type LightKind string

// Supported light kinds.
const (
	// LightDirectional lights arrive from infinitely far along Direction.
	LightDirectional LightKind = "directional"
	// LightSpherical lights radiate from Position with inverse-square falloff.
	LightSpherical LightKind = "spherical"
)

// Light is a light source.
type Light struct {
	Kind      LightKind `json:"kind"`
	Direction Vec3      `json:"direction,omitempty"`
	Position  Vec3      `json:"position,omitempty"`
	Color     Color     `json:"color"`
	Intensity float64   `json:"intensity"`
}

// Scene is everything needed to trace an image. The camera sits at the
// origin looking down -Z.
type Scene struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	FOV               float64 `json:"fov"`
	ShadowBias        float64 `json:"shadow_bias"`
	MaxRecursionDepth int     `json:"max_recursion_depth"`
	Background        Color   `json:"background"`

	Spheres []Sphere `json:"spheres"`
	Planes  []Plane  `json:"planes"`
	Lights  []Light  `json:"lights"`
}

// Decode reads a JSON scene from r, fills defaults and validates it.
func Decode(r io.Reader) (*Scene, error) {
	s := &Scene{}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("raytrace: decode scene: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads and decodes a JSON scene file.
func LoadFile(path string) (*Scene, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("raytrace: open scene: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

func (s *Scene) applyDefaults() {
	if s.FOV == 0 {
		s.FOV = DefaultFOV
	}
	if s.ShadowBias == 0 {
		s.ShadowBias = DefaultShadowBias
	}
	if s.MaxRecursionDepth == 0 {
		s.MaxRecursionDepth = DefaultMaxRecursionDepth
	}
	for i := range s.Planes {
		s.Planes[i].Normal = s.Planes[i].Normal.Normalize()
	}
	for i := range s.Lights {
		if s.Lights[i].Kind == LightDirectional {
			s.Lights[i].Direction = s.Lights[i].Direction.Normalize()
		}
	}
}

// Validate reports the first problem that would make the scene untraceable.
func (s *Scene) Validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidScene, s.Width, s.Height)
	case s.FOV <= 0 || s.FOV >= 180:
		return fmt.Errorf("%w: fov %g out of (0, 180)", ErrInvalidScene, s.FOV)
	case s.MaxRecursionDepth < 1:
		return fmt.Errorf("%w: max_recursion_depth %d", ErrInvalidScene, s.MaxRecursionDepth)
	}
	for i, sp := range s.Spheres {
		if sp.Radius <= 0 {
			return fmt.Errorf("%w: sphere %d radius %g", ErrInvalidScene, i, sp.Radius)
		}
	}
	for i, p := range s.Planes {
		if p.Normal.LengthSq() == 0 {
			return fmt.Errorf("%w: plane %d has zero normal", ErrInvalidScene, i)
		}
	}
	for i, l := range s.Lights {
		switch l.Kind {
		case LightDirectional:
			if l.Direction.LengthSq() == 0 {
				return fmt.Errorf("%w: light %d has zero direction", ErrInvalidScene, i)
			}
		case LightSpherical:
		default:
			return fmt.Errorf("%w: light %d has unknown kind %q", ErrInvalidScene, i, l.Kind)
		}
	}
	return nil
}
