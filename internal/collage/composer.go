package collage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ItsNotGoodName/x-photowall/mosaic"
)

var (
	ErrEmptyLibrary   = errors.New("empty library")
	ErrDecodeFailure  = errors.New("decode failure")
	ErrInvalidSurface = errors.New("invalid surface")
)

// DecodeError is a tile whose image could not be decoded.
type DecodeError struct {
	Tile  int
	Index int
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tile %d: %s: %v", e.Tile, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecodeFailure, e.Err}
}

// Policy decides what a decode failure does to the frame.
type Policy string

const (
	// PolicySkip draws a placeholder in the tile and continues the frame.
	PolicySkip Policy = "skip"
	// PolicyAbort stops the frame and leaves the cycle untouched.
	PolicyAbort Policy = "abort"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyAbort:
		return p, nil
	default:
		return "", fmt.Errorf("invalid policy: %s", s)
	}
}

// ParseScaler returns the interpolator for name.
func ParseScaler(name string) (draw.Scaler, error) {
	switch name {
	case "nearest":
		return draw.NearestNeighbor, nil
	case "approx-bilinear":
		return draw.ApproxBiLinear, nil
	case "", "bilinear":
		return draw.BiLinear, nil
	case "catmullrom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("invalid scaler: %s", name)
	}
}

// State is the rotating cursor of one rendering session.
type State struct {
	Cycle int
}

type Result struct {
	// Indices are the library indices of the tiles in draw order.
	Indices []int
	Drawn   int
	Failed  []*DecodeError
	// Cycle is the cycle after the frame.
	Cycle int
}

type Composer struct {
	Decoder    Decoder
	Scaler     draw.Scaler
	Focus      Focus
	Background color.Color
	Policy     Policy

	mosaic  mosaic.Mosaic
	scratch *image.RGBA
}

func NewComposer(decoder Decoder) *Composer {
	return &Composer{
		Decoder:    decoder,
		Scaler:     draw.BiLinear,
		Focus:      FocusCenter,
		Background: color.White,
		Policy:     PolicySkip,
		mosaic:     mosaic.NewMosaic(mosaic.Collage),
	}
}

// Compose draws one frame of entries onto canvas and advances state by one
// cycle. The frame is built off-screen and copied to canvas only when it
// completes, so on any error canvas keeps its previous contents and state is
// untouched.
func (c *Composer) Compose(ctx context.Context, canvas draw.Image, entries []Entry, state *State) (Result, error) {
	bounds := canvas.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Result{}, ErrInvalidSurface
	}
	if len(entries) == 0 {
		return Result{}, ErrEmptyLibrary
	}

	tiles := c.mosaic.Tiles(bounds)
	indices, cycle := FrameIndices(state.Cycle, len(entries), len(tiles))
	res := Result{Indices: indices}

	if c.scratch == nil || c.scratch.Bounds() != bounds {
		c.scratch = image.NewRGBA(bounds)
	}
	frame := c.scratch

	draw.Draw(frame, bounds, image.NewUniform(c.Background), image.Point{}, draw.Src)

	for k, dst := range tiles {
		entry := entries[indices[k]]

		img, err := c.decode(ctx, entry)
		if err != nil {
			derr := &DecodeError{Tile: k, Index: indices[k], Path: entry.Path, Err: err}
			if c.Policy == PolicyAbort {
				return res, derr
			}

			res.Failed = append(res.Failed, derr)
			drawPlaceholder(frame, dst)
			continue
		}

		c.Scaler.Scale(frame, dst, img, Crop(img.Bounds(), c.Focus), draw.Src, nil)
		res.Drawn++
	}

	draw.Draw(canvas, bounds, frame, bounds.Min, draw.Src)

	state.Cycle = cycle + 1
	res.Cycle = state.Cycle

	return res, nil
}

func (c *Composer) decode(ctx context.Context, entry Entry) (image.Image, error) {
	img, err := c.Decoder.Decode(ctx, entry)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}
