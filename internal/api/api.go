package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ItsNotGoodName/x-photowall/internal/build"
	"github.com/ItsNotGoodName/x-photowall/internal/config"
	"github.com/ItsNotGoodName/x-photowall/internal/engine"
	"github.com/ItsNotGoodName/x-photowall/pkg/chiext"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Controller interface {
	Send(ctx context.Context, cmds ...any) error
	Status(ctx context.Context) (engine.Status, error)
}

// Settings is the persisted config. Changes reach the scheduler through the
// config file watcher.
type Settings interface {
	GetConfig() (config.Config, error)
	UpdateConfig(fn func(cfg config.Config) (config.Config, error)) (config.Config, error)
}

type StatusBody struct {
	Session      string     `json:"session" doc:"Rendering session id"`
	State        string     `json:"state" enum:"hidden,visible-idle,visible-pending"`
	Visible      bool       `json:"visible"`
	Cycle        int        `json:"cycle"`
	Frames       int        `json:"frames" doc:"Frames drawn this session"`
	DelaySeconds int        `json:"delay_seconds"`
	Folder       string     `json:"folder"`
	LastError    string     `json:"last_error,omitempty"`
	LastRender   *time.Time `json:"last_render,omitempty"`
	Version      string     `json:"version"`
}

type StatusOutput struct {
	Body StatusBody
}

type VisibilityInput struct {
	Body struct {
		Visible bool `json:"visible"`
	}
}

type ConfigBody struct {
	Folder       string `json:"folder" doc:"Absolute path of the image folder"`
	DelaySeconds int    `json:"delay_seconds"`
}

type ConfigOutput struct {
	Body ConfigBody
}

type ConfigInput struct {
	Body struct {
		Folder       *string `json:"folder,omitempty" doc:"Absolute path of the image folder"`
		DelaySeconds *int    `json:"delay_seconds,omitempty"`
	}
}

func NewRouter(session string, controller Controller, settings Settings, gatherer prometheus.Gatherer) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chiext.Logger(slog.Default()))
	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	api := humachi.New(router, huma.DefaultConfig("x-photowall", build.Current.Version))
	Register(api, session, controller, settings)

	return router
}

func Register(api huma.API, session string, controller Controller, settings Settings) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Get wallpaper status",
	}, func(ctx context.Context, input *struct{}) (*StatusOutput, error) {
		status, err := controller.Status(ctx)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("scheduler unavailable", err)
		}

		return &StatusOutput{Body: newStatusBody(session, status)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "put-visibility",
		Method:        http.MethodPut,
		Path:          "/api/visibility",
		Summary:       "Show or hide the wallpaper",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *VisibilityInput) (*struct{}, error) {
		if err := controller.Send(ctx, engine.CommandVisibility{Visible: input.Body.Visible}); err != nil {
			return nil, huma.Error503ServiceUnavailable("scheduler unavailable", err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "post-redraw",
		Method:        http.MethodPost,
		Path:          "/api/redraw",
		Summary:       "Draw the next frame now",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct{}) (*struct{}, error) {
		if err := controller.Send(ctx, engine.CommandRedraw{}); err != nil {
			return nil, huma.Error503ServiceUnavailable("scheduler unavailable", err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/api/config",
		Summary:     "Get config",
	}, func(ctx context.Context, input *struct{}) (*ConfigOutput, error) {
		cfg, err := settings.GetConfig()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read config", err)
		}
		return &ConfigOutput{Body: newConfigBody(cfg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-config",
		Method:      http.MethodPut,
		Path:        "/api/config",
		Summary:     "Update config",
	}, func(ctx context.Context, input *ConfigInput) (*ConfigOutput, error) {
		cfg, err := settings.UpdateConfig(func(cfg config.Config) (config.Config, error) {
			if input.Body.Folder != nil {
				cfg.Folder = *input.Body.Folder
			}
			if input.Body.DelaySeconds != nil {
				cfg.Delay = *input.Body.DelaySeconds
			}
			return cfg, cfg.Validate()
		})
		if err != nil {
			if errors.Is(err, config.ErrInvalidConfig) {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to update config", err)
		}

		slog.Info("Updated config", "folder", cfg.Folder, "delay", cfg.Delay)

		return &ConfigOutput{Body: newConfigBody(cfg)}, nil
	})
}

func newConfigBody(cfg config.Config) ConfigBody {
	return ConfigBody{
		Folder:       cfg.Folder,
		DelaySeconds: cfg.Delay,
	}
}

func newStatusBody(session string, status engine.Status) StatusBody {
	body := StatusBody{
		Session:      session,
		State:        status.State.String(),
		Visible:      status.Visible(),
		Cycle:        status.Cycle,
		Frames:       status.Frames,
		DelaySeconds: status.Config.Delay,
		Folder:       status.Config.Folder,
		Version:      build.Current.Version,
	}
	if status.LastError != nil {
		body.LastError = status.LastError.Error()
	}
	if !status.LastRender.IsZero() {
		lastRender := status.LastRender
		body.LastRender = &lastRender
	}
	return body
}

// Server serves the control API.
type Server struct {
	addr    string
	handler http.Handler
}

func NewServer(addr string, handler http.Handler) Server {
	return Server{
		addr:    addr,
		handler: handler,
	}
}

func (s Server) String() string {
	return "api.Server"
}

func (s Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()

	slog.Info("Listening", "service", s.String(), "addr", s.addr)

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
