package xsurface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ItsNotGoodName/x-photowall/internal/core"
	"github.com/ItsNotGoodName/x-photowall/internal/engine"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/thejerf/suture/v4"
)

var (
	ErrWindowDestroyed  = errors.New("window destroyed")
	ErrConnectionClosed = errors.New("x connection closed")
)

// HandleEvent updates the window for ev and returns the scheduler commands it
// maps to. A resize flags a pending redraw for the Pump instead. Resizes seen
// before the Pump sends it share one redraw.
func (w *Window) HandleEvent(ev xgb.Event) []any {
	switch ev := ev.(type) {
	case xproto.MapNotifyEvent:
		if ev.Window == w.wid {
			return []any{engine.CommandVisibility{Visible: true}}
		}
	case xproto.UnmapNotifyEvent:
		if ev.Window == w.wid {
			return []any{engine.CommandVisibility{Visible: false}}
		}
	case xproto.VisibilityNotifyEvent:
		if ev.Window == w.wid {
			return []any{engine.CommandVisibility{Visible: ev.State != xproto.VisibilityFullyObscured}}
		}
	case xproto.DestroyNotifyEvent:
		if ev.Window == w.wid {
			return []any{engine.CommandSurfaceDestroyed{}}
		}
	case xproto.ConfigureNotifyEvent:
		if ev.Window == w.wid && w.Resize(ev.Width, ev.Height) {
			core.FlagChannel(w.redrawC)
		}
	case xproto.ExposeEvent:
		if ev.Window == w.wid && ev.Count == 0 {
			if err := w.Repost(); err != nil {
				slog.Error("Failed to repost frame", "error", err)
			}
		}
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, cmds ...any) error
}

// Pump forwards window events to a Sender. Events come from a single
// ReceiveEvents goroutine that outlives restarts of the Pump.
type Pump struct {
	window *Window
	eventC <-chan xgb.Event
	sender Sender
}

func NewPump(window *Window, eventC <-chan xgb.Event, sender Sender) Pump {
	return Pump{
		window: window,
		eventC: eventC,
		sender: sender,
	}
}

func (p Pump) String() string {
	return fmt.Sprintf("xsurface.Pump(wid=%d)", p.window.wid)
}

func (p Pump) Serve(ctx context.Context) error {
	slog := slog.With("service", p.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-p.eventC:
			if !ok {
				return errors.Join(ErrConnectionClosed, suture.ErrTerminateSupervisorTree)
			}

			slog.Debug("Event", "event", ev)

			cmds := p.window.HandleEvent(ev)
			if err := p.sender.Send(ctx, cmds...); err != nil {
				return err
			}

			if _, ok := ev.(xproto.DestroyNotifyEvent); ok && len(cmds) > 0 {
				return errors.Join(ErrWindowDestroyed, suture.ErrTerminateSupervisorTree)
			}
		case <-p.window.redrawC:
			if err := p.sender.Send(ctx, engine.CommandRedraw{}); err != nil {
				return err
			}
		}
	}
}

// ReceiveEvents reads events from conn until it is closed.
func ReceiveEvents(ctx context.Context, conn *xgb.Conn, eventC chan<- xgb.Event) {
	defer close(eventC)
	slog := slog.With("func", "xsurface.ReceiveEvents")

	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			slog.Debug("Exit: no event or error")
			return
		}

		if err != nil {
			slog.Error("Failed to read event", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case eventC <- ev:
		}
	}
}
