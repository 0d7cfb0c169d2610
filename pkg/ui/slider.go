package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider picks a float value between Min and Max by dragging.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	// Format renders the value next to the bar, "%.2f" when empty
	Format string

	changed bool
}

// NewSlider creates a slider with its value clamped into [lo, hi].
func NewSlider(x, y, w float64, label string, lo, hi, value float64) *Slider {
	s := &Slider{
		Label:  label,
		Min:    lo,
		Max:    hi,
		X:      x,
		Y:      y,
		W:      w,
		H:      12,
		Format: "%.2f",
	}
	s.Value = s.clamp(value)
	return s
}

func (s *Slider) clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Update moves the value to the cursor while the left button is held on the bar.
func (s *Slider) Update() {
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if float64(mx) < s.X || float64(mx) > s.X+s.W || float64(my) < s.Y || float64(my) > s.Y+s.H {
		return
	}
	v := s.clamp(s.Min + (float64(mx)-s.X)/s.W*(s.Max-s.Min))
	if v != s.Value {
		s.Value = v
		s.changed = true
	}
}

// Changed reports whether the value moved since the last call.
func (s *Slider) Changed() bool {
	c := s.changed
	s.changed = false
	return c
}

// Draw renders the bar and the current value.
func (s *Slider) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := 0.0
	if s.Max > s.Min {
		ratio = (s.Value - s.Min) / (s.Max - s.Min)
	}
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)

	format := s.Format
	if format == "" {
		format = "%.2f"
	}
	text := fmt.Sprintf(format, s.Value)
	ebitenutil.DebugPrintAt(screen, text, int(s.X+s.W)-6*len(text), int(s.Y)-15)
}
