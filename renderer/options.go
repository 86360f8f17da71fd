package renderer

import "github.com/gogpu/gpucontext"

// Option configures Autocreate.
type Option func(*Options)

// Options are the resolved creation options passed to a Factory.
type Options struct {
	// Name forces a specific implementation instead of trying them by
	// priority.
	Name string

	// DeviceProvider is a GPU device shared by the host application. GPU
	// implementations use it instead of creating their own.
	DeviceProvider gpucontext.DeviceProvider
}

// WithName forces the implementation registered under name.
//
//	r, err := renderer.Autocreate(b, renderer.WithName("software"))
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithDeviceProvider hands a host-owned GPU device to GPU implementations.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *Options) {
		o.DeviceProvider = p
	}
}
