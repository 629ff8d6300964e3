package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ItsNotGoodName/x-photowall/internal/collage"
	"github.com/ItsNotGoodName/x-photowall/internal/config"
	"github.com/ItsNotGoodName/x-photowall/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// Surface is the canvas a frame is drawn on.
type Surface interface {
	// Lock returns the canvas for the next frame.
	Lock() (draw.Image, error)
	// Unlock posts the canvas and releases the surface.
	Unlock(canvas draw.Image) error
}

type Library interface {
	List(ctx context.Context, folder string) ([]collage.Entry, error)
}

// Engine is one rendering session. It owns the cycle cursor.
type Engine struct {
	ID string

	library  Library
	composer *collage.Composer
	surface  Surface
	metrics  *metrics.Metrics

	mu     sync.Mutex
	folder string
	state  collage.State
}

func NewEngine(library Library, composer *collage.Composer, surface Surface, m *metrics.Metrics) *Engine {
	return &Engine{
		ID:       uuid.NewString(),
		library:  library,
		composer: composer,
		surface:  surface,
		metrics:  m,
	}
}

func (e *Engine) Cycle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Cycle
}

// Render draws the next frame of folder onto the surface. The cycle restarts
// when folder differs from the previous call.
func (e *Engine) Render(ctx context.Context, folder string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	slog := slog.With("session", e.ID, "folder", folder)
	start := time.Now()

	if folder != e.folder {
		if e.folder != "" {
			slog.Info("Folder changed, restarting cycle", "previous", e.folder)
		}
		e.folder = folder
		e.state = collage.State{}
	}

	res, err := e.render(ctx, folder)
	e.metrics.DecodeFailuresTotal.Add(float64(len(res.Failed)))
	for _, derr := range res.Failed {
		slog.Warn("Failed to decode image", "tile", derr.Tile, "path", derr.Path, "error", derr.Err)
	}
	if err != nil {
		if errors.Is(err, collage.ErrDecodeFailure) {
			e.metrics.DecodeFailuresTotal.Inc()
		}
		e.metrics.RenderErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return err
	}

	e.metrics.FramesTotal.Inc()
	e.metrics.Cycle.Set(float64(e.state.Cycle))
	e.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	slog.Debug("Rendered frame", "cycle", res.Cycle, "indices", res.Indices, "drawn", res.Drawn, "elapsed", time.Since(start))

	return nil
}

func (e *Engine) render(ctx context.Context, folder string) (collage.Result, error) {
	entries, err := e.library.List(ctx, folder)
	if err != nil {
		return collage.Result{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if len(entries) == 0 {
		return collage.Result{}, collage.ErrEmptyLibrary
	}

	return e.compose(ctx, entries)
}

func (e *Engine) compose(ctx context.Context, entries []collage.Entry) (res collage.Result, err error) {
	canvas, err := e.surface.Lock()
	if err != nil {
		return res, fmt.Errorf("failed to lock surface: %w", err)
	}
	defer func() {
		if uerr := e.surface.Unlock(canvas); uerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to unlock surface: %w", uerr))
		}
	}()

	return e.composer.Compose(ctx, canvas, entries, &e.state)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return metrics.KindInvalidConfig
	case errors.Is(err, collage.ErrEmptyLibrary):
		return metrics.KindEmptyLibrary
	case errors.Is(err, collage.ErrInvalidSurface):
		return metrics.KindInvalidSurface
	case errors.Is(err, collage.ErrDecodeFailure):
		return metrics.KindDecodeFailure
	default:
		return metrics.KindSurface
	}
}
