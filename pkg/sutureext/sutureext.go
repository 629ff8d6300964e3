package sutureext

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// NewSimple returns a supervisor whose events are logged to logger.
func NewSimple(name string, logger *slog.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: EventHook(logger),
	})
}

func EventHook(logger *slog.Logger) suture.EventHook {
	ctx := context.Background()
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.LogAttrs(ctx, slog.LevelWarn, "Service failed to terminate in a timely manner",
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName))
		case suture.EventServicePanic:
			logger.LogAttrs(ctx, slog.LevelError, "Caught a service panic",
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName),
				slog.String("panic", e.PanicMsg),
				slog.String("stacktrace", e.Stacktrace))
		case suture.EventServiceTerminate:
			logger.LogAttrs(ctx, slog.LevelError, "Service failed",
				slog.Any("error", e.Err),
				slog.String("supervisor", e.SupervisorName),
				slog.String("service", e.ServiceName),
				slog.Bool("restarting", e.Restarting),
				slog.Float64("failures", e.CurrentFailures))
		case suture.EventBackoff:
			logger.LogAttrs(ctx, slog.LevelWarn, "Too many service failures, entering the backoff state",
				slog.String("supervisor", e.SupervisorName))
		case suture.EventResume:
			logger.LogAttrs(ctx, slog.LevelInfo, "Exiting backoff state",
				slog.String("supervisor", e.SupervisorName))
		default:
			logger.LogAttrs(ctx, slog.LevelWarn, "Unknown supervisor event",
				slog.Int("type", int(e.Type())),
				slog.String("event", e.String()))
		}
	}
}

// Service forces the use of the String method
type Service interface {
	String() string
	suture.Service
}

func Add(super *suture.Supervisor, service Service) suture.ServiceToken {
	return super.Add(sanitizeService{Service: service})
}

type sanitizeService struct {
	Service
}

func (s sanitizeService) Serve(ctx context.Context) error {
	return SanitizeError(ctx, s.Service.Serve(ctx))
}

// SanitizeError prevents the error from being interpreted as a context error unless it
// really is a context error because suture kills the service when it sees a context error.
func SanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var newErrs [3]error

	if errors.Is(err, suture.ErrDoNotRestart) {
		newErrs[0] = suture.ErrDoNotRestart
	}

	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		newErrs[1] = suture.ErrTerminateSupervisorTree
	}

	newErrs[2] = errors.New(err.Error())

	return errors.Join(newErrs[:]...)
}

type ServiceFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func NewServiceFunc(name string, fn func(ctx context.Context) error) ServiceFunc {
	return ServiceFunc{
		name: name,
		fn:   fn,
	}
}

func (s ServiceFunc) String() string {
	return s.name
}

func (s ServiceFunc) Serve(ctx context.Context) error {
	return s.fn(ctx)
}
