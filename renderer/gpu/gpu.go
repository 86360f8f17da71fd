//go:build !nogpu

// Package gpu registers the GPU renderer implementation, built on
// gogpu/wgpu. The renderer either probes its own adapter or uses a device
// shared by the host application through renderer.WithDeviceProvider.
//
// Build with the nogpu tag to leave it out.
package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/core"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/drmformat"
	"github.com/gogpu/compositor/renderer"
)

// Name is the registry name of the GPU renderer.
const Name = "gpu"

// Priority places the GPU renderer ahead of the software one.
const Priority = 100

// ErrNoGPU is returned when no adapter is available.
var ErrNoGPU = errors.New("gpu: no GPU adapter available")

//go:embed shaders/blit.wgsl
var blitShaderSource string

func init() {
	renderer.Register(Name, Priority, create, nil)
}

func create(_ *backend.Backend, opts renderer.Options) (renderer.Impl, error) {
	if opts.DeviceProvider != nil {
		return NewShared(opts.DeviceProvider)
	}
	return New()
}

var (
	blitOnce  sync.Once
	blitSPIRV []byte
	blitErr   error
)

// BlitShader returns the SPIR-V of the blit shader, compiling it on first
// use.
func BlitShader() ([]byte, error) {
	blitOnce.Do(func() {
		blitSPIRV, blitErr = naga.Compile(blitShaderSource)
		if blitErr != nil {
			blitErr = fmt.Errorf("gpu: failed to compile blit shader: %w", blitErr)
		}
	})
	return blitSPIRV, blitErr
}

// AdapterInfo describes the adapter a renderer runs on.
type AdapterInfo struct {
	Name       string
	Vendor     string
	DeviceType string
	Backend    string
	Driver     string
}

func (a AdapterInfo) String() string {
	if a.DeviceType == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (%s, %s)", a.Name, a.DeviceType, a.Backend)
}

// Renderer is the GPU implementation.
type Renderer struct {
	instance *core.Instance
	adapter  core.AdapterID
	provider gpucontext.DeviceProvider
	info     AdapterInfo
	blit     []byte

	formats *drmformat.Set
	dmabuf  *drmformat.Set
}

// New probes a high-performance adapter and creates a renderer on it.
func New() (*Renderer, error) {
	blit, err := BlitShader()
	if err != nil {
		return nil, err
	}

	instance := core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})
	adapter, err := instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoGPU, err)
	}

	r := &Renderer{instance: instance, adapter: adapter, blit: blit}
	if info, err := core.GetAdapterInfo(adapter); err == nil {
		r.info = AdapterInfo{
			Name:       info.Name,
			Vendor:     info.Vendor,
			DeviceType: fmt.Sprint(info.DeviceType),
			Backend:    fmt.Sprint(info.Backend),
			Driver:     info.Driver,
		}
	} else {
		compositor.Logger().Warn("gpu: failed to get adapter info", "err", err)
	}
	r.formats = sampleFormats(gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm)
	r.dmabuf = r.formats

	compositor.Logger().Info("gpu: adapter selected", "adapter", r.info.String(), "driver", r.info.Driver)
	return r, nil
}

// NewShared creates a renderer on a device owned by the host. The renderer
// never releases that device.
func NewShared(p gpucontext.DeviceProvider) (*Renderer, error) {
	if p == nil || p.Device() == nil {
		return nil, fmt.Errorf("%w: device provider has no device", ErrNoGPU)
	}
	blit, err := BlitShader()
	if err != nil {
		return nil, err
	}

	surface := p.SurfaceFormat()
	if surface == gputypes.TextureFormatUndefined {
		surface = gputypes.TextureFormatBGRA8Unorm
	}
	r := &Renderer{provider: p, blit: blit, info: AdapterInfo{Name: "shared"}}
	r.formats = sampleFormats(surface, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm)
	compositor.Logger().Info("gpu: using host device", "surface_format", surface)
	return r, nil
}

// sampleFormats builds the DRM formats that sample as one of tfs. Every
// format supports the linear layout and the implicit one.
func sampleFormats(tfs ...gputypes.TextureFormat) *drmformat.Set {
	var formats []drmformat.Format
	for _, tf := range tfs {
		for _, c := range drmformat.CodesFor(tf) {
			formats = append(formats, drmformat.NewFormat(c, drmformat.ModLinear, drmformat.ModInvalid))
		}
	}
	return drmformat.NewSet(formats...)
}

func (r *Renderer) Name() string                   { return Name }
func (r *Renderer) TextureFormats() *drmformat.Set { return r.formats }

// DMABufFormats is nil for renderers on a host device: the host owns
// buffer import there.
func (r *Renderer) DMABufFormats() *drmformat.Set { return r.dmabuf }

// Info returns the adapter description.
func (r *Renderer) Info() AdapterInfo { return r.info }

// BlitSPIRV returns the compiled blit shader module the renderer composites
// client buffers with, or nil once destroyed.
func (r *Renderer) BlitSPIRV() []byte { return r.blit }

// Shared reports whether the renderer runs on a host-provided device.
func (r *Renderer) Shared() bool { return r.provider != nil }

// Destroy releases the adapter if the renderer probed it.
func (r *Renderer) Destroy() {
	if !r.adapter.IsZero() {
		if err := core.AdapterDrop(r.adapter); err != nil {
			compositor.Logger().Warn("gpu: error releasing adapter", "err", err)
		}
		r.adapter = core.AdapterID{}
	}
	r.instance = nil
	r.provider = nil
	r.blit = nil
}
