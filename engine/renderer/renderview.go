package renderer

import (
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

// RenderView collects the draws queued during one frame.
type RenderView struct {
	Name  string
	draws []metadata.GeometryRenderData
}

func NewRenderView(name string) *RenderView {
	return &RenderView{
		Name:  name,
		draws: make([]metadata.GeometryRenderData, 0),
	}
}

// Queue adds one draw of geometry with the given instance.
func (v *RenderView) Queue(model math.Mat4, geometry *metadata.Geometry, instance *metadata.InstanceBuffer) {
	v.draws = append(v.draws, metadata.GeometryRenderData{
		Model:    model,
		Geometry: geometry,
		Instance: instance,
	})
}

func (v *RenderView) Draws() []metadata.GeometryRenderData {
	return v.draws
}

func (v *RenderView) BuildPacket(frame *metadata.FrameContext) *metadata.RenderViewPacket {
	p := &metadata.RenderViewPacket{
		ViewName:   v.Name,
		Geometries: v.draws,
	}
	if frame != nil {
		p.FrameNumber = frame.FrameNumber
	}
	return p
}

// Reset drops the queued draws, keeping the allocation for the next frame.
func (v *RenderView) Reset() {
	v.draws = v.draws[:0]
}
