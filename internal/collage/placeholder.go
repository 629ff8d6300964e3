package collage

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const placeholderText = "Missing image"

var (
	placeholderBackground = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	placeholderForeground = color.Black
)

// drawPlaceholder marks a tile whose image could not be drawn.
func drawPlaceholder(dst draw.Image, r image.Rectangle) {
	draw.Draw(dst, r, image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(placeholderForeground),
		Face: face,
	}

	width := d.MeasureString(placeholderText).Ceil()
	if width > r.Dx() || face.Height > r.Dy() {
		return
	}

	x := r.Min.X + (r.Dx()-width)/2
	y := r.Min.Y + (r.Dy()-face.Height)/2 + face.Ascent
	d.Dot = fixed.P(x, y)
	d.DrawString(placeholderText)
}
