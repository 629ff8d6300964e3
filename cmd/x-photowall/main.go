package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ItsNotGoodName/x-photowall/internal/api"
	"github.com/ItsNotGoodName/x-photowall/internal/build"
	"github.com/ItsNotGoodName/x-photowall/internal/collage"
	"github.com/ItsNotGoodName/x-photowall/internal/config"
	"github.com/ItsNotGoodName/x-photowall/internal/core"
	"github.com/ItsNotGoodName/x-photowall/internal/engine"
	"github.com/ItsNotGoodName/x-photowall/internal/metrics"
	"github.com/ItsNotGoodName/x-photowall/internal/surface"
	"github.com/ItsNotGoodName/x-photowall/internal/xsurface"
	"github.com/ItsNotGoodName/x-photowall/pkg/sutureext"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/gofrs/flock"
	"github.com/jezek/xgb"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/k0kubun/pp"
	"github.com/phsym/console-slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
)

type Options struct {
	Debug  bool   `doc:"enable debug"`
	Host   string `doc:"host to listen on"`
	Port   int    `doc:"port to listen on, 0 disables the api" default:"8080"`
	Config string `doc:"config file (.yaml, .yml, .json or .ini)" default:".x-photowall.yaml"`
	Output string `doc:"write frames to this png file instead of an x11 window"`
	Width  int    `doc:"png width" default:"1080"`
	Height int    `doc:"png height" default:"1920"`
	Order  string `doc:"image order (name, modtime, directory)" default:"name"`
	Focus  string `doc:"crop focus (start, center, end)" default:"center"`
	Scaler string `doc:"scaler (nearest, approx-bilinear, bilinear, catmullrom)" default:"bilinear"`
	Policy string `doc:"decode failure policy (skip, abort)" default:"skip"`
}

func main() {
	godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if options.Debug {
			InitLogger(slog.LevelDebug)
		} else {
			InitLogger(slog.LevelInfo)
		}

		OnServe(hooks, func(ctx context.Context) error {
			return serve(ctx, options)
		})
	})

	cli.Root().Use = "x-photowall"
	cli.Root().Version = build.Current.String()
	cli.Root().AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the settings",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *Options) {
			if err := printConfig(options); err != nil {
				log.Fatal(err)
			}
		}),
	})

	cli.Run()
}

func printConfig(options *Options) error {
	driver, err := config.NewDriver(options.Config)
	if err != nil {
		return err
	}

	cfg, err := driver.Read()
	if err != nil {
		return err
	}

	pp.Println(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
	}
	return nil
}

func newComposer(options *Options, decoder collage.Decoder) (*collage.Composer, error) {
	focus, err := collage.ParseFocus(options.Focus)
	if err != nil {
		return nil, err
	}
	scaler, err := collage.ParseScaler(options.Scaler)
	if err != nil {
		return nil, err
	}
	policy, err := collage.ParsePolicy(options.Policy)
	if err != nil {
		return nil, err
	}

	composer := collage.NewComposer(decoder)
	composer.Focus = focus
	composer.Scaler = scaler
	composer.Policy = policy
	return composer, nil
}

func serve(ctx context.Context, options *Options) error {
	configFilePath, err := filepath.Abs(options.Config)
	if err != nil {
		return err
	}

	fileLock := flock.New(configFilePath + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("another instance is using %s", configFilePath)
	}
	defer fileLock.Unlock()

	driver, err := config.NewDriver(configFilePath)
	if err != nil {
		return err
	}
	store, err := config.NewStore(driver)
	if err != nil {
		return err
	}
	cfg, err := store.GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("Invalid config, waiting for changes", "path", configFilePath, "error", err)
	}

	order, err := collage.ParseOrder(options.Order)
	if err != nil {
		return err
	}
	library := collage.NewDir(order)
	composer, err := newComposer(options, library)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var surf engine.Surface
	var window *xsurface.Window
	var conn *xgb.Conn
	if options.Output != "" {
		surf = surface.NewPNG(options.Output, options.Width, options.Height)
	} else {
		conn, err = xgb.NewConn()
		if err != nil {
			return err
		}
		defer conn.Close()

		window, err = xsurface.CreateWindow(conn, "x-photowall")
		if err != nil {
			return err
		}
		defer window.Close()

		surf = window
	}

	eng := engine.NewEngine(library, composer, surf, m)
	scheduler := engine.NewScheduler(eng, clockwork.NewRealClock(), cfg, m)
	slog.Info("Starting", "session", eng.ID, "config", configFilePath, "version", build.Current.String())

	super := sutureext.NewSimple("root", slog.With("session", eng.ID))

	sutureext.Add(super, scheduler)
	sutureext.Add(super, config.NewWatcher(configFilePath, driver, -1, func(ctx context.Context, cfg config.Config) {
		if err := scheduler.Send(ctx, engine.CommandConfig{Config: cfg}); err != nil {
			slog.Error("Failed to send config", "error", err)
		}
	}))

	if window != nil {
		eventC := make(chan xgb.Event)
		go xsurface.ReceiveEvents(ctx, conn, eventC)
		sutureext.Add(super, xsurface.NewPump(window, eventC, scheduler))
	} else {
		// A file is always visible.
		sutureext.Add(super, sutureext.NewServiceFunc("surface.PNG", func(ctx context.Context) error {
			if err := scheduler.Send(ctx, engine.CommandVisibility{Visible: true}); err != nil {
				return err
			}
			return suture.ErrDoNotRestart
		}))
	}

	if options.Port != 0 {
		router := api.NewRouter(eng.ID, scheduler, store, reg)
		sutureext.Add(super, api.NewServer(core.Address(options.Host, options.Port), router))
	}

	err = super.Serve(ctx)
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}

func InitLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
