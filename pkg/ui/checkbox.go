package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Checkbox toggles a boolean on click.
type Checkbox struct {
	Label string
	Value bool
	X, Y  float64
	Size  float64

	pressed bool // button still held since the last toggle
	changed bool
}

// NewCheckbox creates a new checkbox instance
func NewCheckbox(x, y float64, label string, value bool) *Checkbox {
	return &Checkbox{
		Label: label,
		Value: value,
		X:     x,
		Y:     y,
		Size:  14,
	}
}

func (c *Checkbox) hovered() bool {
	mx, my := ebiten.CursorPosition()
	return float64(mx) >= c.X && float64(mx) <= c.X+c.Size &&
		float64(my) >= c.Y && float64(my) <= c.Y+c.Size
}

// Update toggles the value once per press.
func (c *Checkbox) Update() {
	if c.hovered() && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !c.pressed {
			c.Value = !c.Value
			c.changed = true
			c.pressed = true
		}
		return
	}
	c.pressed = false
}

// Changed reports whether the value flipped since the last call.
func (c *Checkbox) Changed() bool {
	ch := c.changed
	c.changed = false
	return ch
}

// Draw renders the checkbox
func (c *Checkbox) Draw(screen *ebiten.Image) {
	vector.StrokeRect(screen,
		float32(c.X), float32(c.Y),
		float32(c.Size), float32(c.Size),
		2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255},
		true)

	if c.Value {
		vector.FillRect(screen,
			float32(c.X+3), float32(c.Y+3),
			float32(c.Size-6), float32(c.Size-6),
			color.RGBA{R: 100, G: 200, B: 100, A: 255},
			true)
	}
}
