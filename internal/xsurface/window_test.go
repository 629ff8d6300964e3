package xsurface

import (
	"image"
	"image/color"
	"testing"

	"github.com/ItsNotGoodName/x-photowall/internal/engine"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBGRX(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 0xff})
	img.SetRGBA(2, 1, color.RGBA{R: 4, G: 5, B: 6, A: 0xff})

	data := toBGRX(img, img.Bounds())
	require.Len(t, data, 3*2*4)
	assert.Equal(t, []byte{3, 2, 1, 0}, data[0:4])
	assert.Equal(t, []byte{6, 5, 4, 0}, data[20:24])

	// Second row only.
	data = toBGRX(img, image.Rect(0, 1, 3, 2))
	require.Len(t, data, 3*4)
	assert.Equal(t, []byte{6, 5, 4, 0}, data[8:12])
}

func TestToBGRXOffsetImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 12, 12))
	img.SetRGBA(11, 11, color.RGBA{R: 7, G: 8, B: 9, A: 0xff})

	data := toBGRX(img, image.Rect(11, 11, 12, 12))
	assert.Equal(t, []byte{9, 8, 7, 0}, data)
}

func TestChunkRows(t *testing.T) {
	// 65535 four-byte units is the largest request without BIG-REQUESTS.
	assert.Equal(t, 60, chunkRows(65535*4, 1080))
	assert.Equal(t, 1, chunkRows(100, 1080))
	assert.Equal(t, 1, chunkRows(100, 0))
}

func newTestWindow() *Window {
	return &Window{wid: 7, width: 100, height: 50, redrawC: make(chan struct{}, 1)}
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   xgb.Event
		want []any
	}{
		{name: "map", ev: xproto.MapNotifyEvent{Window: 7}, want: []any{engine.CommandVisibility{Visible: true}}},
		{name: "unmap", ev: xproto.UnmapNotifyEvent{Window: 7}, want: []any{engine.CommandVisibility{Visible: false}}},
		{name: "unobscured", ev: xproto.VisibilityNotifyEvent{Window: 7, State: xproto.VisibilityUnobscured}, want: []any{engine.CommandVisibility{Visible: true}}},
		{name: "partially_obscured", ev: xproto.VisibilityNotifyEvent{Window: 7, State: xproto.VisibilityPartiallyObscured}, want: []any{engine.CommandVisibility{Visible: true}}},
		{name: "fully_obscured", ev: xproto.VisibilityNotifyEvent{Window: 7, State: xproto.VisibilityFullyObscured}, want: []any{engine.CommandVisibility{Visible: false}}},
		{name: "destroy", ev: xproto.DestroyNotifyEvent{Window: 7}, want: []any{engine.CommandSurfaceDestroyed{}}},
		{name: "other_window", ev: xproto.MapNotifyEvent{Window: 8}},
		{name: "same_size", ev: xproto.ConfigureNotifyEvent{Window: 7, Width: 100, Height: 50}},
		{name: "resize", ev: xproto.ConfigureNotifyEvent{Window: 7, Width: 200, Height: 50}},
		{name: "expose_nothing_posted", ev: xproto.ExposeEvent{Window: 7}},
		{name: "unrelated", ev: xproto.KeyPressEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWindow()
			assert.Equal(t, tt.want, w.HandleEvent(tt.ev))
		})
	}
}

func TestHandleEventResizeFlagsRedraw(t *testing.T) {
	w := newTestWindow()

	w.HandleEvent(xproto.ConfigureNotifyEvent{Window: 7, Width: 100, Height: 50})
	assert.Len(t, w.redrawC, 0)

	w.HandleEvent(xproto.ConfigureNotifyEvent{Window: 7, Width: 200, Height: 50})
	w.HandleEvent(xproto.ConfigureNotifyEvent{Window: 7, Width: 300, Height: 60})
	assert.Len(t, w.redrawC, 1)

	width, height := w.Size()
	assert.Equal(t, uint16(300), width)
	assert.Equal(t, uint16(60), height)
}

func TestLockFollowsResize(t *testing.T) {
	w := newTestWindow()

	canvas, err := w.Lock()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), canvas.Bounds())

	again, err := w.Lock()
	require.NoError(t, err)
	assert.Same(t, canvas, again)

	assert.True(t, w.Resize(30, 40))
	assert.False(t, w.Resize(30, 40))

	canvas, err = w.Lock()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 40), canvas.Bounds())

	width, height := w.Size()
	assert.Equal(t, uint16(30), width)
	assert.Equal(t, uint16(40), height)
}
