package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// UIWidget is an interface for all UI widgets
type UIWidget interface {
	Update()
	Draw(screen *ebiten.Image)
	// Changed reports and clears a pending user edit
	Changed() bool
}

const (
	sectionHeight = 25.0
	sliderHeight  = 34.0
	checkHeight   = 22.0
	buttonHeight  = 30.0
)

// panelRow is one line of the panel: a section header or a widget row.
type panelRow struct {
	title   string // set for section headers
	label   string
	widgets []UIWidget
	height  float64
	place   func(y float64)
}

// UIPanel lays widgets out in a scrollable column.
type UIPanel struct {
	X, Y          float64
	Width, Height float64
	Title         string
	ScrollOffset  float64

	BGColor     color.RGBA
	BorderColor color.RGBA

	rows []panelRow
}

// NewUIPanel creates a new UI panel
func NewUIPanel(x, y, width, height float64) *UIPanel {
	return &UIPanel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       "Configuration",
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// AddSection starts a titled group of widgets.
func (p *UIPanel) AddSection(title string) {
	p.rows = append(p.rows, panelRow{title: title, height: sectionHeight})
}

// AddSlider adds a slider widget to the panel
func (p *UIPanel) AddSlider(label string, lo, hi, value float64) *Slider {
	s := NewSlider(p.X+10, 0, p.Width-20, label, lo, hi, value)
	p.rows = append(p.rows, panelRow{
		label:   label,
		widgets: []UIWidget{s},
		height:  sliderHeight,
		place:   func(y float64) { s.Y = y + 16 },
	})
	return s
}

// AddCheckbox adds a checkbox widget to the panel
func (p *UIPanel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+10, 0, label, value)
	p.rows = append(p.rows, panelRow{
		widgets: []UIWidget{c},
		height:  checkHeight,
		place:   func(y float64) { c.Y = y + 2 },
	})
	return c
}

// AddButtons adds a row of equally sized buttons, one per label.
func (p *UIPanel) AddButtons(labels []string, onClick []func()) []*Button {
	n := len(labels)
	if n == 0 || len(onClick) != n {
		return nil
	}
	gap := 6.0
	w := (p.Width - 20 - gap*float64(n-1)) / float64(n)

	buttons := make([]*Button, n)
	widgets := make([]UIWidget, n)
	for i, label := range labels {
		buttons[i] = NewButton(p.X+10+float64(i)*(w+gap), 0, w, buttonHeight-6, label, onClick[i])
		widgets[i] = buttons[i]
	}
	p.rows = append(p.rows, panelRow{
		widgets: widgets,
		height:  buttonHeight,
		place: func(y float64) {
			for _, b := range buttons {
				b.Y = y
			}
		},
	})
	return buttons
}

// Update scrolls the panel and forwards input to the visible widgets.
func (p *UIPanel) Update() {
	if _, dy := ebiten.Wheel(); dy != 0 {
		p.ScrollOffset -= dy * 20
		maxScroll := max(p.contentHeight()-p.Height+40, 0)
		p.ScrollOffset = min(max(p.ScrollOffset, 0), maxScroll)
	}

	p.layout(func(row panelRow, visible bool) {
		if !visible {
			return
		}
		for _, w := range row.widgets {
			w.Update()
		}
	})
}

// Changed reports whether any widget was edited since the last call.
func (p *UIPanel) Changed() bool {
	changed := false
	for _, row := range p.rows {
		for _, w := range row.widgets {
			if w.Changed() {
				changed = true
			}
		}
	}
	return changed
}

// Draw renders the panel and all widgets
func (p *UIPanel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	p.layout(func(row panelRow, visible bool) {
		if !visible {
			return
		}
		if row.title != "" {
			return
		}
		if row.label != "" {
			ebitenutil.DebugPrintAt(screen, row.label, int(p.X+10), int(rowY(row)))
		}
		for _, w := range row.widgets {
			w.Draw(screen)
			if c, ok := w.(*Checkbox); ok {
				ebitenutil.DebugPrintAt(screen, c.Label, int(c.X+c.Size+8), int(c.Y)-1)
			}
		}
	})

	// section headers go on top of the widgets
	y := p.Y + 30 - p.ScrollOffset
	for _, row := range p.rows {
		if row.title != "" && p.visible(y, row.height) {
			vector.FillRect(screen,
				float32(p.X+5), float32(y),
				float32(p.Width-10), 20,
				color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
			ebitenutil.DebugPrintAt(screen, row.title, int(p.X+10), int(y+3))
		}
		y += row.height
	}
}

// rowY recovers the row origin from its first widget.
func rowY(row panelRow) float64 {
	if len(row.widgets) == 0 {
		return 0
	}
	switch w := row.widgets[0].(type) {
	case *Slider:
		return w.Y - 16
	case *Checkbox:
		return w.Y - 2
	case *Button:
		return w.Y
	}
	return 0
}

// layout positions every row for the current scroll offset and calls fn.
func (p *UIPanel) layout(fn func(row panelRow, visible bool)) {
	y := p.Y + 30 - p.ScrollOffset
	for _, row := range p.rows {
		if row.place != nil {
			row.place(y)
		}
		fn(row, p.visible(y, row.height))
		y += row.height
	}
}

func (p *UIPanel) visible(y, h float64) bool {
	return y >= p.Y+20 && y+h <= p.Y+p.Height
}

func (p *UIPanel) contentHeight() float64 {
	h := 30.0
	for _, row := range p.rows {
		h += row.height
	}
	return h
}
