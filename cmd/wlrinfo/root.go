package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	_ "github.com/gogpu/compositor/backend/drm"
	_ "github.com/gogpu/compositor/backend/libinput"
	_ "github.com/gogpu/compositor/backend/nested"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/renderer"
	_ "github.com/gogpu/compositor/renderer/gpu"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wlrinfo",
		Short: "Report the devices a compositor backend discovers",
		Long: `wlrinfo creates a backend the way a compositor would, starts it, lists
the input devices and outputs it announces and the renderer chosen for it,
and destroys it again.

Backend selection follows WLR_BACKENDS, WAYLAND_DISPLAY and DISPLAY unless
--strategy headless is given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("config")
			cfgViper := config.New(file)
			for key, flag := range flagKeys {
				if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
					_ = cfgViper.BindPFlag(key, f)
				}
			}
			if err := config.Read(cfgViper); err != nil {
				return err
			}
			cfg, err := config.Load(cfgViper)
			if err != nil {
				return err
			}
			dispatch, _ := cmd.Flags().GetDuration("dispatch")
			return run(cmd.Context(), cmd, cfg, dispatch)
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/compositor/config.yaml)")
	flags.String("strategy", "auto", "backend strategy: auto or headless")
	flags.StringSlice("backends", nil, "backend kinds for auto (overrides WLR_BACKENDS)")
	flags.String("renderer", "", "renderer name (overrides WLR_RENDERER)")
	flags.Int("headless-outputs", 0, "outputs created by headless backends")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Duration("dispatch", 0, "run the event loop this long to collect late announcements")

	return cmd
}

// flagKeys maps configuration keys to the flags overriding them.
var flagKeys = map[string]string{
	"strategy":                 "strategy",
	"backend.backends":         "backends",
	"renderer":                 "renderer",
	"backend.headless_outputs": "headless-outputs",
	"log_level":                "log-level",
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dispatch time.Duration) error {
	level, _ := cfg.Level()
	compositor.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	defer compositor.SetLogger(nil)

	strategy, err := cfg.StrategyValue()
	if err != nil {
		return err
	}

	loop := eventloop.New()
	defer loop.Destroy()

	b, err := backend.New(loop, strategy, cfg.Backend)
	if err != nil {
		return err
	}

	rep := &report{Strategy: strategy.String()}
	b.Events.NewInput.Subscribe(func(d *backend.InputDevice) { rep.addInput(d) })
	b.Events.NewOutput.Subscribe(func(o *backend.Output) { rep.addOutput(o) })

	if h, ok := b.Impl().(*backend.Headless); ok {
		for range cfg.Backend.HeadlessOutputs {
			h.AddOutput(1920, 1080)
		}
	}

	err = backend.Use(b, func(b *backend.Backend) error {
		rep.Multi = b.IsMulti()
		if sess, err := b.Session(); err == nil {
			rep.Session = "detached"
			if !sess.Detached() {
				vt, _ := sess.ActiveVT()
				rep.Session = fmt.Sprintf("vt%d", vt)
			}
		}

		var opts []renderer.Option
		if cfg.Renderer != "" {
			opts = append(opts, renderer.WithName(cfg.Renderer))
		}
		r, err := renderer.Autocreate(b, opts...)
		if err != nil {
			rep.Renderer = err.Error()
		} else {
			rep.Renderer = r.Name()
			rep.TextureFormats = r.TextureFormats().Codes()
		}

		if dispatch > 0 {
			runCtx, cancel := context.WithTimeout(ctx, dispatch)
			defer cancel()
			if err := loop.Run(runCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), rep.Render())
	return nil
}
