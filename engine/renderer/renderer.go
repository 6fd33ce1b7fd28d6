package renderer

import (
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

// Renderer is the front end every system talks to. It owns the backend and
// the views that are drawn each frame.
type Renderer struct {
	backend RendererBackend
	views   []*RenderView
}

func NewRenderer(appName string, backend RendererBackend) (*Renderer, error) {
	if backend == nil {
		err := fmt.Errorf("func NewRenderer - backend must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	if err := backend.Initialize(appName); err != nil {
		core.LogError("failed to initialize renderer backend: %s", err.Error())
		return nil, err
	}
	return &Renderer{
		backend: backend,
		views:   make([]*RenderView, 0, 1),
	}, nil
}

func (r *Renderer) Shutdown() error {
	r.views = nil
	return r.backend.Shutdown()
}

// CreateView registers a new view that is drawn every frame, in creation order.
func (r *Renderer) CreateView(name string) *RenderView {
	v := NewRenderView(name)
	r.views = append(r.views, v)
	return v
}

// DrawFrame submits the packets of every view collected since the last frame.
func (r *Renderer) DrawFrame(frame *metadata.FrameContext) error {
	if err := r.backend.BeginFrame(frame); err != nil {
		return err
	}
	for _, v := range r.views {
		packet := v.BuildPacket(frame)
		for i := range packet.Geometries {
			if err := r.backend.DrawGeometry(&packet.Geometries[i]); err != nil {
				core.LogError("view '%s' failed to draw geometry: %s", v.Name, err.Error())
				return err
			}
		}
		v.Reset()
	}
	return r.backend.EndFrame(frame)
}

func (r *Renderer) TextureCreate(image *formats.TextureImage) (*metadata.Texture, error) {
	return r.backend.TextureCreate(image)
}

func (r *Renderer) TextureDestroy(texture *metadata.Texture) error {
	return r.backend.TextureDestroy(texture)
}

func (r *Renderer) CreateGeometry(batch *formats.Batch) (*metadata.Geometry, error) {
	return r.backend.CreateGeometry(batch)
}

func (r *Renderer) DestroyGeometry(geometry *metadata.Geometry) error {
	return r.backend.DestroyGeometry(geometry)
}

func (r *Renderer) InstanceBufferCreate(part string, slot int, world math.Mat4) (*metadata.InstanceBuffer, error) {
	return r.backend.InstanceBufferCreate(part, slot, world)
}

func (r *Renderer) InstanceBufferDestroy(buffer *metadata.InstanceBuffer) error {
	return r.backend.InstanceBufferDestroy(buffer)
}
