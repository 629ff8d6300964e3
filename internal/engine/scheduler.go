package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ItsNotGoodName/x-photowall/internal/config"
	"github.com/ItsNotGoodName/x-photowall/internal/metrics"
	"github.com/jonboulle/clockwork"
)

type State int

const (
	StateHidden State = iota
	StateVisibleIdle
	StateVisiblePending
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateVisibleIdle:
		return "visible-idle"
	case StateVisiblePending:
		return "visible-pending"
	default:
		return "unknown"
	}
}

type (
	CommandVisibility struct {
		Visible bool
	}
	CommandSurfaceDestroyed struct{}
	CommandRedraw           struct{}
	CommandConfig           struct {
		Config config.Config
	}
	CommandStatus struct {
		resC chan<- Status
	}
)

type Status struct {
	State      State
	Cycle      int
	Frames     int
	Config     config.Config
	LastError  error
	LastRender time.Time
}

func (s Status) Visible() bool {
	return s.State != StateHidden
}

type Renderer interface {
	Render(ctx context.Context, folder string) error
	Cycle() int
}

// Scheduler draws a frame every delay while the surface is visible.
type Scheduler struct {
	renderer Renderer
	clock    clockwork.Clock
	metrics  *metrics.Metrics
	commandC chan any

	// Owned by Serve.
	state      State
	config     config.Config
	configErr  error
	frames     int
	lastError  error
	lastRender time.Time
}

func NewScheduler(renderer Renderer, clock clockwork.Clock, cfg config.Config, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		renderer:  renderer,
		clock:     clock,
		metrics:   m,
		commandC:  make(chan any),
		config:    cfg,
		configErr: cfg.Validate(),
	}
}

func (s *Scheduler) String() string {
	return "engine.Scheduler"
}

// Send blocks until every command is received by Serve.
func (s *Scheduler) Send(ctx context.Context, cmds ...any) error {
	for _, cmd := range cmds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.commandC <- cmd:
		}
	}
	return nil
}

func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	resC := make(chan Status, 1)
	if err := s.Send(ctx, CommandStatus{resC: resC}); err != nil {
		return Status{}, err
	}

	select {
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case status := <-resC:
		return status, nil
	}
}

func (s *Scheduler) Serve(ctx context.Context) error {
	slog := slog.With("service", s.String())

	var timer clockwork.Timer
	var timerC <-chan time.Time
	cancel := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer cancel()

	schedule := func() {
		cancel()
		timer = s.clock.NewTimer(s.config.DelayDuration())
		timerC = timer.Chan()
		s.state = StateVisiblePending
	}

	render := func() {
		if s.configErr != nil {
			cancel()
			s.state = StateVisibleIdle
			s.lastError = s.configErr
			s.metrics.RenderErrorsTotal.WithLabelValues(metrics.KindInvalidConfig).Inc()
			slog.Error("Invalid config, not drawing", "error", s.configErr)
			return
		}

		err := s.renderer.Render(ctx, s.config.Folder)
		s.lastError = err
		if err != nil {
			if errors.Is(err, config.ErrInvalidConfig) {
				cancel()
				s.state = StateVisibleIdle
				slog.Error("Invalid config, not drawing", "error", err)
				return
			}
			slog.Error("Failed to draw frame", "error", err)
		} else {
			s.frames++
			s.lastRender = s.clock.Now()
		}

		schedule()
	}

	setVisible := func(visible bool) {
		s.metrics.SetVisible(visible)
		if !visible {
			cancel()
			s.state = StateHidden
			return
		}
		if s.state == StateHidden {
			s.state = StateVisibleIdle
			render()
		}
	}

	// Resume after a restart.
	if s.state != StateHidden {
		render()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			timer, timerC = nil, nil
			render()
		case cmd := <-s.commandC:
			switch cmd := cmd.(type) {
			case CommandVisibility:
				slog.Debug("Visibility changed", "visible", cmd.Visible)
				setVisible(cmd.Visible)
			case CommandSurfaceDestroyed:
				slog.Debug("Surface destroyed")
				setVisible(false)
			case CommandRedraw:
				if s.state != StateHidden {
					render()
				}
			case CommandConfig:
				folderChanged := cmd.Config.Folder != s.config.Folder
				delayChanged := cmd.Config.Delay != s.config.Delay
				s.config = cmd.Config
				s.configErr = cmd.Config.Validate()
				if s.configErr != nil {
					slog.Error("Invalid config", "error", s.configErr)
				}

				switch {
				case s.state == StateHidden:
				case s.configErr != nil:
					cancel()
					s.state = StateVisibleIdle
					s.lastError = s.configErr
				case folderChanged, s.state == StateVisibleIdle:
					render()
				case delayChanged:
					schedule()
				}
			case CommandStatus:
				cmd.resC <- Status{
					State:      s.state,
					Cycle:      s.renderer.Cycle(),
					Frames:     s.frames,
					Config:     s.config,
					LastError:  s.lastError,
					LastRender: s.lastRender,
				}
			default:
				slog.Warn("Unknown command", "command", cmd)
			}
		}
	}
}
