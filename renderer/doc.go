// Package renderer creates the rendering context a compositor draws with.
//
// A Renderer is bound to one backend.Backend and lives no longer than it:
// the backend's Destroy signal tears the renderer down. Implementations are
// registered by name and priority; Autocreate picks the best available one.
// The software implementation is always registered. Import renderer/gpu for
// the GPU implementation:
//
//	import _ "github.com/gogpu/compositor/renderer/gpu"
//
//	r, err := renderer.Autocreate(b)
//	if err != nil {
//	    return err
//	}
//	if err := r.InitDisplay(display); err != nil {
//	    return err
//	}
package renderer
