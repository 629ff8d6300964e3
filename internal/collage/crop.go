package collage

import (
	"fmt"
	"image"
)

// Focus places the crop band inside the source image.
type Focus string

const (
	FocusStart  Focus = "start"
	FocusCenter Focus = "center"
	FocusEnd    Focus = "end"
)

func ParseFocus(s string) (Focus, error) {
	switch f := Focus(s); f {
	case "":
		return FocusCenter, nil
	case FocusStart, FocusCenter, FocusEnd:
		return f, nil
	default:
		return "", fmt.Errorf("invalid focus: %s", s)
	}
}

func (f Focus) offset(size, band int) int {
	switch f {
	case FocusStart:
		return 0
	case FocusEnd:
		return size - band
	default:
		return (size - band) / 2
	}
}

// Crop returns the source region of an image with bounds b.
//
// Images at least 1.4 times as wide as they are tall keep their full height
// and a band round(h*1.4) wide. Everything else keeps its full width and a
// band round(w*0.7) tall. Integer arithmetic keeps the threshold and the
// rounding exact.
func Crop(b image.Rectangle, focus Focus) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}

	if 5*w >= 7*h {
		band := (14*h + 5) / 10
		x := b.Min.X + focus.offset(w, band)
		return image.Rect(x, b.Min.Y, x+band, b.Max.Y)
	}

	band := (7*w + 5) / 10
	y := b.Min.Y + focus.offset(h, band)
	return image.Rect(b.Min.X, y, b.Max.X, y+band)
}
