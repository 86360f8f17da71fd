package renderer

import (
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/drmformat"
)

// Software is the name of the CPU implementation.
const Software = "software"

func init() {
	Register(Software, 10, func(*backend.Backend, Options) (Impl, error) {
		return NewSoftware(), nil
	}, nil)
}

// SoftwareRenderer samples from linear shared-memory buffers only.
type SoftwareRenderer struct {
	formats *drmformat.Set
}

// NewSoftware creates a software implementation.
func NewSoftware() *SoftwareRenderer {
	return &SoftwareRenderer{
		formats: drmformat.NewSet(
			drmformat.NewFormat(drmformat.ARGB8888, drmformat.ModLinear),
			drmformat.NewFormat(drmformat.XRGB8888, drmformat.ModLinear),
			drmformat.NewFormat(drmformat.ABGR8888, drmformat.ModLinear),
			drmformat.NewFormat(drmformat.XBGR8888, drmformat.ModLinear),
			drmformat.NewFormat(drmformat.RGB565, drmformat.ModLinear),
		),
	}
}

func (s *SoftwareRenderer) Name() string                   { return Software }
func (s *SoftwareRenderer) TextureFormats() *drmformat.Set { return s.formats }
func (s *SoftwareRenderer) DMABufFormats() *drmformat.Set  { return nil }
func (s *SoftwareRenderer) Destroy()                       {}
