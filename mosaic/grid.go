package mosaic

import "image"

// LayoutColumns fills columns top to bottom, then left to right. Tile width is
// w/columns and tile height is the tile width scaled by num/den, so the tiles
// keep their aspect ratio regardless of the area height.
type LayoutColumns struct {
	columns int
	rows    int
	num     int
	den     int
}

func NewLayoutColumns(columns, rows, num, den int) LayoutColumns {
	return LayoutColumns{
		columns: columns,
		rows:    rows,
		num:     num,
		den:     den,
	}
}

// Collage is the 2 column by 5 row layout with tiles 0.71 times as tall as
// they are wide.
var Collage = NewLayoutColumns(2, 5, 71, 100)

func (l LayoutColumns) Count() int {
	return l.columns * l.rows
}

// TileSize returns the tile width and height for an area w wide.
func (l LayoutColumns) TileSize(w int) (int, int) {
	tw := w / l.columns
	return tw, tw * l.num / l.den
}

func (l LayoutColumns) Update(tiles []image.Rectangle, w, h int) {
	tw, th := l.TileSize(w)

	for k := range tiles {
		col, row := k/l.rows, k%l.rows
		x, y := col*tw, row*th
		tiles[k] = image.Rect(x, y, x+tw, y+th)
	}
}
