// Package raytrace is a small Whitted-style ray tracer used as the per-pixel
// collaborator for raypool renders.
//
// Scenes are JSON documents:
//
//	{
//	  "width": 320, "height": 240, "fov": 90,
//	  "spheres": [{"center": {"x": 0, "y": 0, "z": -5}, "radius": 1,
//	               "material": {"color": {"red": 0.4, "green": 1, "blue": 0.4}, "albedo": 0.18}}],
//	  "planes":  [{"origin": {"x": 0, "y": -2, "z": 0}, "normal": {"x": 0, "y": 1, "z": 0},
//	               "material": {"color": {"red": 0.2, "green": 0.2, "blue": 0.2}, "albedo": 0.18}}],
//	  "lights":  [{"kind": "directional", "direction": {"x": -0.25, "y": -1, "z": -1},
//	               "color": {"red": 1, "green": 1, "blue": 1}, "intensity": 20}]
//	}
//
// PrimaryRay and Cast are pure functions of the scene, so pixels may be
// traced in any order and from any goroutine.
package raytrace
