// Package view maps flock coordinates onto a 2D screen.
package view

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Plane selects which two axes are drawn.
type Plane int

const (
	// Top looks down the z axis: screen x is x, screen y is y.
	Top Plane = iota
	// Side looks along the y axis: screen x is x, screen y is z.
	Side
)

func (p Plane) String() string {
	if p == Side {
		return "side (x/z)"
	}
	return "top (x/y)"
}

// Projector fits the field into a screen rectangle, keeping its aspect ratio.
type Projector struct {
	Bounds flock.FieldBounds
	Plane  Plane

	scale            float64
	originX, originY float64
}

// NewProjector fits bounds into the rectangle at (left, top) of size w x h.
func NewProjector(bounds flock.FieldBounds, plane Plane, left, top, w, h float64) *Projector {
	p := &Projector{Bounds: bounds, Plane: plane}
	fieldW, fieldH := p.extent()
	p.scale = math.Min(w/fieldW, h/fieldH)
	// centre the field in the rectangle
	p.originX = left + (w-fieldW*p.scale)/2
	p.originY = top + (h-fieldH*p.scale)/2
	return p
}

func (p *Projector) extent() (float64, float64) {
	if p.Plane == Side {
		return 2 * p.Bounds.X, p.Bounds.Z
	}
	return 2 * p.Bounds.X, 2 * p.Bounds.Y
}

// Scale is the number of pixels per field unit.
func (p *Projector) Scale() float64 {
	return p.scale
}

// Rect returns the screen rectangle covered by the field.
func (p *Projector) Rect() (x, y, w, h float64) {
	fieldW, fieldH := p.extent()
	return p.originX, p.originY, fieldW * p.scale, fieldH * p.scale
}

// Project maps a field position to screen pixels. Field "up" is screen up.
func (p *Projector) Project(v geometry.Vector3D) (float64, float64) {
	sx := p.originX + (v.X+p.Bounds.X)*p.scale
	if p.Plane == Side {
		return sx, p.originY + (p.Bounds.Z-v.Z)*p.scale
	}
	return sx, p.originY + (p.Bounds.Y-v.Y)*p.scale
}

// Heading is the screen angle of a velocity, in radians.
func (p *Projector) Heading(v geometry.Vector3D) float64 {
	if p.Plane == Side {
		return math.Atan2(-v.Z, v.X)
	}
	return math.Atan2(-v.Y, v.X)
}

// Depth returns how far a position sits along the hidden axis, from 0 at the
// far face to 1 at the near one.
func (p *Projector) Depth(v geometry.Vector3D) float64 {
	var d float64
	if p.Plane == Side {
		d = (v.Y + p.Bounds.Y) / (2 * p.Bounds.Y)
	} else {
		d = v.Z / p.Bounds.Z
	}
	return math.Min(math.Max(d, 0), 1)
}

// Shade maps depth to a brightness factor so near agents stand out.
func Shade(depth float64) float64 {
	return 0.35 + 0.65*depth
}

// Triangle returns the tip, right and left corners of an agent glyph of the
// given size pointing along heading.
func Triangle(x, y, heading, size float64) [3][2]float64 {
	return [3][2]float64{
		{x + math.Cos(heading)*size, y + math.Sin(heading)*size},
		{x + math.Cos(heading+2.5)*size*0.8, y + math.Sin(heading+2.5)*size*0.8},
		{x + math.Cos(heading-2.5)*size*0.8, y + math.Sin(heading-2.5)*size*0.8},
	}
}
