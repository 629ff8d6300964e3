package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"strconv"
	"testing"

	"github.com/ItsNotGoodName/x-photowall/internal/collage"
	"github.com/ItsNotGoodName/x-photowall/internal/config"
	"github.com/ItsNotGoodName/x-photowall/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

type fakeLibrary map[string][]collage.Entry

func (l fakeLibrary) List(ctx context.Context, folder string) ([]collage.Entry, error) {
	entries, ok := l[folder]
	if !ok {
		return nil, os.ErrNotExist
	}
	return entries, nil
}

type fakeSurface struct {
	canvas    *image.RGBA
	locked    int
	unlocked  int
	lockErr   error
	unlockErr error
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{canvas: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (s *fakeSurface) Lock() (draw.Image, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	s.locked++
	return s.canvas, nil
}

func (s *fakeSurface) Unlock(canvas draw.Image) error {
	s.unlocked++
	return s.unlockErr
}

func entries(prefix string, n int) []collage.Entry {
	e := make([]collage.Entry, n)
	for i := range e {
		e[i] = collage.Entry{Path: prefix + "/" + strconv.Itoa(i), Name: strconv.Itoa(i)}
	}
	return e
}

var errCorrupt = errors.New("corrupt")

func newTestEngine(t *testing.T, surface Surface, bad string) (*Engine, *metrics.Metrics) {
	t.Helper()

	composer := collage.NewComposer(collage.DecoderFunc(func(ctx context.Context, entry collage.Entry) (image.Image, error) {
		if entry.Path == bad {
			return nil, errCorrupt
		}
		img := image.NewRGBA(image.Rect(0, 0, 7, 5))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{G: 0xff, A: 0xff}), image.Point{}, draw.Src)
		return img, nil
	}))
	composer.Policy = collage.PolicyAbort

	library := fakeLibrary{
		"/photos": entries("/photos", 30),
		"/other":  entries("/other", 30),
		"/empty":  nil,
	}

	m := metrics.New(prometheus.NewRegistry())
	return NewEngine(library, composer, surface, m), m
}

func TestEngineRender(t *testing.T) {
	surface := newFakeSurface(100, 200)
	e, m := newTestEngine(t, surface, "")

	require.NoError(t, e.Render(context.Background(), "/photos"))
	require.NoError(t, e.Render(context.Background(), "/photos"))

	assert.Equal(t, 2, e.Cycle())
	assert.Equal(t, 2, surface.locked)
	assert.Equal(t, 2, surface.unlocked)
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, surface.canvas.RGBAAt(25, 17))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycle))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RenderDuration))
}

func TestEngineSessionID(t *testing.T) {
	a, _ := newTestEngine(t, newFakeSurface(1, 1), "")
	b, _ := newTestEngine(t, newFakeSurface(1, 1), "")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEngineFolderChangeResetsCycle(t *testing.T) {
	e, _ := newTestEngine(t, newFakeSurface(100, 200), "")

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Render(context.Background(), "/photos"))
	}
	assert.Equal(t, 3, e.Cycle())

	require.NoError(t, e.Render(context.Background(), "/other"))
	assert.Equal(t, 1, e.Cycle())
}

func TestEngineEmptyLibrary(t *testing.T) {
	surface := newFakeSurface(100, 200)
	e, m := newTestEngine(t, surface, "")

	err := e.Render(context.Background(), "/empty")
	assert.ErrorIs(t, err, collage.ErrEmptyLibrary)
	assert.Zero(t, surface.locked)
	assert.Zero(t, surface.unlocked)
	assert.Zero(t, e.Cycle())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrorsTotal.WithLabelValues(metrics.KindEmptyLibrary)))
}

func TestEngineUnreadableFolder(t *testing.T) {
	surface := newFakeSurface(100, 200)
	e, m := newTestEngine(t, surface, "")

	err := e.Render(context.Background(), "/missing")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, surface.locked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrorsTotal.WithLabelValues(metrics.KindInvalidConfig)))
}

func TestEngineDecodeAbortReleasesSurface(t *testing.T) {
	surface := newFakeSurface(100, 200)
	e, m := newTestEngine(t, surface, "/photos/4")

	err := e.Render(context.Background(), "/photos")
	assert.ErrorIs(t, err, collage.ErrDecodeFailure)
	assert.ErrorIs(t, err, errCorrupt)
	assert.Equal(t, 1, surface.locked)
	assert.Equal(t, 1, surface.unlocked)
	assert.Zero(t, e.Cycle())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrorsTotal.WithLabelValues(metrics.KindDecodeFailure)))
	assert.Zero(t, testutil.ToFloat64(m.FramesTotal))
}

func TestEngineInvalidSurfaceReleasesSurface(t *testing.T) {
	surface := newFakeSurface(0, 200)
	e, _ := newTestEngine(t, surface, "")

	err := e.Render(context.Background(), "/photos")
	assert.ErrorIs(t, err, collage.ErrInvalidSurface)
	assert.Equal(t, 1, surface.locked)
	assert.Equal(t, 1, surface.unlocked)
	assert.Zero(t, e.Cycle())
}

func TestEngineLockError(t *testing.T) {
	errLock := errors.New("lock")
	surface := newFakeSurface(100, 200)
	surface.lockErr = errLock
	e, m := newTestEngine(t, surface, "")

	err := e.Render(context.Background(), "/photos")
	assert.ErrorIs(t, err, errLock)
	assert.Zero(t, surface.unlocked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrorsTotal.WithLabelValues(metrics.KindSurface)))
}

func TestEngineUnlockErrorJoined(t *testing.T) {
	errUnlock := errors.New("unlock")
	surface := newFakeSurface(100, 200)
	surface.unlockErr = errUnlock
	e, _ := newTestEngine(t, surface, "/photos/0")

	err := e.Render(context.Background(), "/photos")
	assert.ErrorIs(t, err, errUnlock)
	assert.ErrorIs(t, err, collage.ErrDecodeFailure)
}
