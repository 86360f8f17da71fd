package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/drmformat"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("8"))
	nameStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type outputLine struct {
	Name, Make, Model string
	Mode              string
}

type inputLine struct {
	Name, Kind string
}

// report collects what the backend announced while it was alive.
type report struct {
	Strategy       string
	Multi          bool
	Session        string
	Renderer       string
	TextureFormats []drmformat.Code
	Outputs        []outputLine
	Inputs         []inputLine
}

func (r *report) addOutput(o *backend.Output) {
	line := outputLine{Name: o.Name(), Make: o.Make(), Model: o.Model(), Mode: "no modes"}
	if m, ok := o.PreferredMode(); ok {
		line.Mode = fmt.Sprintf("%dx%d", m.Width, m.Height)
		if m.Refresh > 0 {
			line.Mode += fmt.Sprintf("@%.2fHz", float64(m.Refresh)/1000)
		}
	}
	r.Outputs = append(r.Outputs, line)
}

func (r *report) addInput(d *backend.InputDevice) {
	r.Inputs = append(r.Inputs, inputLine{Name: d.Name(), Kind: d.Kind().String()})
}

// Render formats the report for a terminal.
func (r *report) Render() string {
	var b strings.Builder

	strategy := r.Strategy
	if r.Multi {
		strategy += " (multi)"
	}
	b.WriteString(titleStyle.Render("Backend") + "\n")
	b.WriteString(labelStyle.Render("strategy") + strategy + "\n")
	if r.Session != "" {
		b.WriteString(labelStyle.Render("session") + r.Session + "\n")
	}
	b.WriteString(labelStyle.Render("renderer") + r.Renderer + "\n")
	if len(r.TextureFormats) > 0 {
		names := make([]string, len(r.TextureFormats))
		for i, c := range r.TextureFormats {
			names[i] = c.String()
		}
		b.WriteString(labelStyle.Render("formats") + strings.Join(names, " ") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Outputs (%d)", len(r.Outputs))) + "\n")
	if len(r.Outputs) == 0 {
		b.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, o := range r.Outputs {
		fmt.Fprintf(&b, "  %s  %s %s\n", nameStyle.Render(o.Name), o.Mode, mutedStyle.Render(o.Make+" "+o.Model))
	}

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Inputs (%d)", len(r.Inputs))) + "\n")
	if len(r.Inputs) == 0 {
		b.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, d := range r.Inputs {
		fmt.Fprintf(&b, "  %s  %s\n", nameStyle.Render(d.Name), mutedStyle.Render(d.Kind))
	}
	return b.String()
}
