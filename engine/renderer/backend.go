package renderer

import (
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

// RendererBackend is the GPU resource abstraction. Handles it returns stay
// valid until the matching destroy call.
type RendererBackend interface {
	Initialize(appName string) error
	Shutdown() error
	BeginFrame(frame *metadata.FrameContext) error
	EndFrame(frame *metadata.FrameContext) error
	TextureCreate(image *formats.TextureImage) (*metadata.Texture, error)
	TextureDestroy(texture *metadata.Texture) error
	CreateGeometry(batch *formats.Batch) (*metadata.Geometry, error)
	DestroyGeometry(geometry *metadata.Geometry) error
	InstanceBufferCreate(part string, slot int, world math.Mat4) (*metadata.InstanceBuffer, error)
	InstanceBufferDestroy(buffer *metadata.InstanceBuffer) error
	DrawGeometry(data *metadata.GeometryRenderData) error
}
