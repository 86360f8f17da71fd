package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gogpu/compositor/backend"
)

// clearEnv unsets every variable the loader reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s, _ := cfg.StrategyValue(); s != backend.StrategyAuto {
		t.Errorf("Strategy = %v, want auto", s)
	}
	if cfg.Backend.SysRoot != backend.DefaultSysRoot || cfg.Backend.DevRoot != backend.DefaultDevRoot {
		t.Errorf("roots = %q, %q", cfg.Backend.SysRoot, cfg.Backend.DevRoot)
	}
	if len(cfg.Backend.Backends) != 0 || cfg.Backend.WaylandDisplay != "" {
		t.Errorf("Backend = %+v, want empty selection inputs", cfg.Backend)
	}
	if l, _ := cfg.Level(); l != slog.LevelInfo {
		t.Errorf("Level() = %v, want info", l)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("WLR_BACKENDS", "drm, libinput")
	t.Setenv("WLR_RENDERER", "software")
	t.Setenv("WLR_TTY", "/dev/tty2")
	t.Setenv("WLR_HEADLESS_OUTPUTS", "2")
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	t.Setenv("DISPLAY", ":0")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("COMPOSITOR_LOG_LEVEL", "debug")
	t.Setenv("COMPOSITOR_STRATEGY", "headless")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if !slices.Equal(cfg.Backend.Backends, []string{"drm", "libinput"}) {
		t.Errorf("Backends = %q", cfg.Backend.Backends)
	}
	if cfg.Renderer != "software" {
		t.Errorf("Renderer = %q", cfg.Renderer)
	}
	if cfg.Backend.Session.TTY != "/dev/tty2" {
		t.Errorf("Session.TTY = %q", cfg.Backend.Session.TTY)
	}
	if cfg.Backend.HeadlessOutputs != 2 {
		t.Errorf("HeadlessOutputs = %d", cfg.Backend.HeadlessOutputs)
	}
	if cfg.Backend.WaylandDisplay != "wayland-1" || cfg.Backend.X11Display != ":0" || cfg.Backend.RuntimeDir != "/run/user/1000" {
		t.Errorf("display settings = %+v", cfg.Backend)
	}
	if l, _ := cfg.Level(); l != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", l)
	}
	if s, _ := cfg.StrategyValue(); s != backend.StrategyHeadless {
		t.Errorf("Strategy = %v, want headless", s)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "compositor.yaml")
	data := `
renderer: gpu
backend:
  backends: [headless, x11]
  x11_display: ":3"
  headless_outputs: 1
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WLR_RENDERER", "software")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !slices.Equal(cfg.Backend.Backends, []string{"headless", "x11"}) {
		t.Errorf("Backends = %q", cfg.Backend.Backends)
	}
	if cfg.Backend.X11Display != ":3" || cfg.Backend.HeadlessOutputs != 1 {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Renderer != "software" {
		t.Errorf("Renderer = %q, environment should override the file", cfg.Renderer)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing explicit file) succeeded")
	}

	tests := []struct {
		name, env, value string
	}{
		{"strategy", "COMPOSITOR_STRATEGY", "drm"},
		{"log level", "COMPOSITOR_LOG_LEVEL", "loud"},
		{"headless outputs", "WLR_HEADLESS_OUTPUTS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := LoadFile(""); err == nil {
				t.Errorf("LoadFile() with %s=%q succeeded", tt.env, tt.value)
			}
		})
	}
}

func TestSplitKinds(t *testing.T) {
	got := splitKinds([]string{"drm,libinput", " ", "x11 "})
	if !slices.Equal(got, []string{"drm", "libinput", "x11"}) {
		t.Errorf("splitKinds() = %q", got)
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg-test")
	if got := Dir(); got != "/etc/xdg-test/compositor" {
		t.Errorf("Dir() = %q", got)
	}
}
