package xsurface

import (
	"errors"
	"image"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/image/draw"
)

const putImageHeader = 24

// Window is a desktop window covering the default screen.
type Window struct {
	conn        *xgb.Conn
	wid         xproto.Window
	gc          xproto.Gcontext
	depth       byte
	maxRequest  int
	imageFormat byte

	// redrawC holds at most one pending redraw from resizes.
	redrawC chan struct{}

	mu     sync.Mutex
	width  uint16
	height uint16
	canvas *image.RGBA
	frame  *image.RGBA
}

func CreateWindow(conn *xgb.Conn, name string) (*Window, error) {
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	if err := xproto.CreateWindowChecked(conn, screen.RootDepth,
		wid, screen.Root,
		0, 0, screen.WidthInPixels, screen.HeightInPixels, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask, // 1, 2
		[]uint32{
			screen.WhitePixel, // 1
			xproto.EventMaskStructureNotify |
				xproto.EventMaskExposure |
				xproto.EventMaskVisibilityChange, // 2
		}).Check(); err != nil {
		return nil, err
	}

	if err := setDesktopType(conn, wid); err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	if err := xproto.ChangePropertyChecked(conn, xproto.PropModeReplace, wid,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(name)), []byte(name)).Check(); err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(wid), 0, nil).Check(); err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		xproto.FreeGC(conn, gc)
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	return &Window{
		conn:        conn,
		wid:         wid,
		gc:          gc,
		depth:       screen.RootDepth,
		maxRequest:  int(setup.MaximumRequestLength) * 4,
		imageFormat: xproto.ImageFormatZPixmap,
		redrawC:     make(chan struct{}, 1),
		width:       screen.WidthInPixels,
		height:      screen.HeightInPixels,
	}, nil
}

func setDesktopType(conn *xgb.Conn, wid xproto.Window) error {
	typeAtom, err := internAtom(conn, "_NET_WM_WINDOW_TYPE")
	if err != nil {
		return err
	}
	desktopAtom, err := internAtom(conn, "_NET_WM_WINDOW_TYPE_DESKTOP")
	if err != nil {
		return err
	}

	data := make([]byte, 4)
	xgb.Put32(data, uint32(desktopAtom))

	return xproto.ChangePropertyChecked(conn, xproto.PropModeReplace, wid,
		typeAtom, xproto.AtomAtom, 32, 1, data).Check()
}

func internAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func (w *Window) WID() xproto.Window {
	return w.wid
}

func (w *Window) Size() (uint16, uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Resize records the new window size. The next Lock returns a canvas of that
// size.
func (w *Window) Resize(width, height uint16) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.width == width && w.height == height {
		return false
	}
	w.width, w.height = width, height
	return true
}

func (w *Window) Lock() (draw.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	bounds := image.Rect(0, 0, int(w.width), int(w.height))
	if w.canvas == nil || w.canvas.Bounds() != bounds {
		w.canvas = image.NewRGBA(bounds)
	}
	return w.canvas, nil
}

// Unlock uploads canvas to the window and keeps it for Repost.
func (w *Window) Unlock(canvas draw.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	frame := image.NewRGBA(canvas.Bounds())
	draw.Draw(frame, frame.Bounds(), canvas, canvas.Bounds().Min, draw.Src)
	w.frame = frame

	return w.put(frame)
}

// Repost uploads the last frame again.
func (w *Window) Repost() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return nil
	}
	return w.put(w.frame)
}

func (w *Window) Close() {
	xproto.FreeGC(w.conn, w.gc)
	xproto.DestroyWindow(w.conn, w.wid)
}

func (w *Window) put(img *image.RGBA) error {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}

	var errs []error
	rows := chunkRows(w.maxRequest, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y += rows {
		r := image.Rect(b.Min.X, y, b.Max.X, min(y+rows, b.Max.Y))
		err := xproto.PutImageChecked(w.conn, w.imageFormat, xproto.Drawable(w.wid), w.gc,
			uint16(r.Dx()), uint16(r.Dy()), int16(r.Min.X-b.Min.X), int16(r.Min.Y-b.Min.Y), 0, w.depth,
			toBGRX(img, r)).Check()
		if err != nil {
			errs = append(errs, err)
			break
		}
	}

	return errors.Join(errs...)
}

// chunkRows returns how many rows of width pixels fit in one PutImage request
// of at most maxRequest bytes.
func chunkRows(maxRequest, width int) int {
	if width <= 0 {
		return 1
	}
	return max((maxRequest-putImageHeader)/(width*4), 1)
}

// toBGRX converts r of img to 32 bits per pixel ZPixmap data for a little
// endian TrueColor visual.
func toBGRX(img *image.RGBA, r image.Rectangle) []byte {
	data := make([]byte, 0, r.Dx()*r.Dy()*4)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			data = append(data, row[i+2], row[i+1], row[i], 0)
		}
	}
	return data
}
