package mosaic

import "image"

type (
	Mosaic struct {
		tiles  []image.Rectangle
		layout Layout
	}

	// Layout places Count tiles inside a w by h area whose origin is (0, 0).
	Layout interface {
		Count() int
		Update(tiles []image.Rectangle, w, h int)
	}
)

func NewMosaic(layout Layout) Mosaic {
	m := Mosaic{}
	m.SetLayout(layout)
	return m
}

func (m *Mosaic) SetLayout(layout Layout) {
	m.layout = layout
	m.tiles = make([]image.Rectangle, layout.Count())
}

func (m *Mosaic) Count() int {
	return len(m.tiles)
}

// Tiles returns the tiles for the bounds, offset by bounds.Min. The returned
// slice is reused by the next call.
func (m *Mosaic) Tiles(bounds image.Rectangle) []image.Rectangle {
	m.layout.Update(m.tiles, bounds.Dx(), bounds.Dy())
	for i := range m.tiles {
		m.tiles[i] = m.tiles[i].Add(bounds.Min)
	}
	return m.tiles
}
