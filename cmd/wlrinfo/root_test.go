package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate keeps the host environment out of backend selection.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WLR_BACKENDS", "WLR_RENDERER", "WLR_TTY", "WLR_HEADLESS_OUTPUTS",
		"WAYLAND_DISPLAY", "DISPLAY", "COMPOSITOR_LOG_LEVEL", "COMPOSITOR_STRATEGY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHeadlessReport(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--strategy", "headless", "--headless-outputs", "2", "--renderer", "software")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"headless", "software", "Outputs (2)", "HEADLESS-1", "HEADLESS-2", "1920x1080", "Inputs (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAutoHeadlessKind(t *testing.T) {
	isolate(t)
	t.Setenv("WLR_BACKENDS", "headless")
	t.Setenv("WLR_HEADLESS_OUTPUTS", "1")
	t.Setenv("WLR_RENDERER", "software")

	out, err := execute(t)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"auto (multi)", "detached", "Outputs (1)", "HEADLESS-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	data := "strategy: headless\nrenderer: software\nbackend:\n  headless_outputs: 3\n"
	if err := os.WriteFile(file, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", file)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Outputs (3)") {
		t.Errorf("config file not applied:\n%s", out)
	}

	// Flags override the file.
	out, err = execute(t, "--config", file, "--headless-outputs", "1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Outputs (1)") {
		t.Errorf("flag did not override file:\n%s", out)
	}
}

func TestErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown strategy", []string{"--strategy", "bogus"}},
		{"unknown backend kind", []string{"--backends", "carrier-pigeon"}},
		{"bad log level", []string{"--strategy", "headless", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestUnknownRendererIsReported(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--strategy", "headless", "--renderer", "vulkan-3000")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "vulkan-3000") {
		t.Errorf("renderer failure not reported:\n%s", out)
	}
}
