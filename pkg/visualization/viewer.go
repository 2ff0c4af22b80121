// Package visualization renders a detector tube bank as a 3D wireframe.
// It consumes only the per-tube radius, length, orientation angles, and
// center position; it owns no detector state.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"psdtubes/pkg/geometry"
)

// TubeShape is the minimal description of one tube the viewer needs.
type TubeShape struct {
	Radius float64
	Length float64
	ThetaX float64
	ThetaZ float64
	Center r3.Vec
}

// Viewer builds wireframe polylines for a set of tubes and projects them
// orthographically onto an image.
type Viewer struct {
	shapes []TubeShape

	// circleSegments is the polyline resolution of each end circle.
	circleSegments int
}

// NewViewer creates a viewer over the given tube shapes.
func NewViewer(shapes []TubeShape) *Viewer {
	return &Viewer{
		shapes:         shapes,
		circleSegments: 24,
	}
}

// Wireframe returns the polylines of one tube in the bank frame: the two
// end circles plus four axial rails connecting them.
func (v *Viewer) Wireframe(i int) [][]r3.Vec {
	s := v.shapes[i]
	half := 0.5 * s.Length
	n := v.circleSegments

	toWorld := func(p r3.Vec) r3.Vec {
		return r3.Add(s.Center, geometry.LocalToWorld(p, s.ThetaX, s.ThetaZ))
	}

	circle := func(y float64) []r3.Vec {
		pts := make([]r3.Vec, n+1)
		for k := 0; k <= n; k++ {
			phi := 2 * math.Pi * float64(k) / float64(n)
			pts[k] = toWorld(r3.Vec{
				X: s.Radius * math.Cos(phi),
				Y: y,
				Z: s.Radius * math.Sin(phi),
			})
		}
		return pts
	}

	lines := [][]r3.Vec{circle(-half), circle(half)}
	for _, phi := range []float64{0, 0.5 * math.Pi, math.Pi, 1.5 * math.Pi} {
		x := s.Radius * math.Cos(phi)
		z := s.Radius * math.Sin(phi)
		lines = append(lines, []r3.Vec{
			toWorld(r3.Vec{X: x, Y: -half, Z: z}),
			toWorld(r3.Vec{X: x, Y: half, Z: z}),
		})
	}
	return lines
}

// RenderProjection draws the whole bank onto an image, projecting along
// the named axis ("x", "y" or "z") with the remaining two coordinates
// mapped to the image plane.
func (v *Viewer) RenderProjection(axis string, widthPx, heightPx int) (image.Image, error) {
	project, err := projector(axis)
	if err != nil {
		return nil, err
	}
	if widthPx <= 0 || heightPx <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %dx%d", widthPx, heightPx)
	}

	// Gather every polyline point to size the viewport.
	var lines [][]r3.Vec
	for i := range v.shapes {
		lines = append(lines, v.Wireframe(i)...)
	}
	minU, maxU := math.Inf(1), math.Inf(-1)
	minW, maxW := math.Inf(1), math.Inf(-1)
	for _, line := range lines {
		for _, p := range line {
			u, w := project(p)
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minW, maxW = math.Min(minW, w), math.Max(maxW, w)
		}
	}
	if len(lines) == 0 || minU == maxU && minW == maxW {
		return nil, fmt.Errorf("nothing to render")
	}

	// Uniform scale with a small margin, preserving aspect ratio.
	const margin = 0.05
	spanU := maxU - minU
	spanW := maxW - minW
	if spanU == 0 {
		spanU = 1
	}
	if spanW == 0 {
		spanW = 1
	}
	scale := math.Min(
		float64(widthPx)*(1-2*margin)/spanU,
		float64(heightPx)*(1-2*margin)/spanW,
	)

	img := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	for y := 0; y < heightPx; y++ {
		for x := 0; x < widthPx; x++ {
			img.Set(x, y, color.White)
		}
	}

	toPixel := func(p r3.Vec) (int, int) {
		u, w := project(p)
		px := int(float64(widthPx)*margin + (u-minU)*scale)
		py := heightPx - 1 - int(float64(heightPx)*margin+(w-minW)*scale)
		return px, py
	}
	for _, line := range lines {
		for k := 1; k < len(line); k++ {
			x0, y0 := toPixel(line[k-1])
			x1, y1 := toPixel(line[k])
			drawLine(img, x0, y0, x1, y1, color.Black)
		}
	}
	return img, nil
}

// SavePNG renders a projection and writes it to path, creating parent
// directories as needed.
func (v *Viewer) SavePNG(path, axis string, widthPx, heightPx int) error {
	img, err := v.RenderProjection(axis, widthPx, heightPx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating image file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("error encoding PNG: %w", err)
	}
	return nil
}

// projector maps a bank-frame point to the two in-plane coordinates of a
// projection along the named axis.
func projector(axis string) (func(r3.Vec) (float64, float64), error) {
	switch axis {
	case "x", "X":
		return func(p r3.Vec) (float64, float64) { return p.Z, p.Y }, nil
	case "y", "Y":
		return func(p r3.Vec) (float64, float64) { return p.X, p.Z }, nil
	case "z", "Z":
		return func(p r3.Vec) (float64, float64) { return p.X, p.Y }, nil
	default:
		return nil, fmt.Errorf("unknown projection axis %q", axis)
	}
}

// drawLine rasterizes a segment with the integer Bresenham walk.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
