package scene

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/spaghettifunk/mapviewer/engine/systems"
)

// MapRenderer draws every placement part whose model was uploaded.
type MapRenderer struct {
	renderer  *renderer.Renderer
	textures  *systems.TextureSystem
	models    *systems.ModelSystem
	placement *formats.PlacementTable
	materials formats.BlockContainer

	instances []*metadata.InstanceBuffer
	view      *renderer.RenderView
	destroyed bool
}

func NewMapRenderer(r *renderer.Renderer, textures *systems.TextureSystem, models *systems.ModelSystem, placement *formats.PlacementTable, materials formats.BlockContainer) (*MapRenderer, error) {
	if r == nil || textures == nil || models == nil || placement == nil {
		err := fmt.Errorf("func NewMapRenderer - renderer, textures, models and placement must be set")
		core.LogError("%s", err)
		return nil, err
	}

	mr := &MapRenderer{
		renderer:  r,
		textures:  textures,
		models:    models,
		placement: placement,
		materials: materials,
		instances: make([]*metadata.InstanceBuffer, 0, len(placement.Parts)),
	}
	for _, part := range placement.Parts {
		if _, ok := models.Model(part.ModelIndex); !ok {
			continue
		}
		world := math.TransformFromPositionRotationScale(part.Position, part.Rotation, part.Scale).GetWorld()
		ib, err := r.InstanceBufferCreate(part.Name, part.ModelIndex, world)
		if err != nil {
			mr.release()
			return nil, fmt.Errorf("allocate instance for part '%s': %w", part.Name, err)
		}
		mr.instances = append(mr.instances, ib)
	}
	core.LogDebug("map renderer created with %d instances", len(mr.instances))
	return mr, nil
}

func (mr *MapRenderer) Attach(view *renderer.RenderView) {
	mr.view = view
}

// PrepareToRender queues one draw per batch of every instanced part.
func (mr *MapRenderer) PrepareToRender(frame *metadata.FrameContext) error {
	if mr.destroyed {
		return fmt.Errorf("map renderer: %w", core.ErrAlreadyDestroyed)
	}
	if mr.view == nil {
		return nil
	}
	for _, ib := range mr.instances {
		m, ok := mr.models.Model(ib.Slot)
		if !ok {
			continue
		}
		for _, g := range m.Geometries {
			mr.view.Queue(ib.World, g, ib)
		}
	}
	return nil
}

// Instances returns the instance buffers, in placement part order.
func (mr *MapRenderer) Instances() []*metadata.InstanceBuffer {
	return mr.instances
}

// Materials is the decoded material definition container.
func (mr *MapRenderer) Materials() formats.BlockContainer {
	return mr.materials
}

func (mr *MapRenderer) Destroy() error {
	if mr.destroyed {
		return fmt.Errorf("map renderer: %w", core.ErrAlreadyDestroyed)
	}
	mr.destroyed = true
	mr.view = nil
	return mr.release()
}

func (mr *MapRenderer) release() error {
	var errs []error
	for _, ib := range mr.instances {
		if !ib.IsValid() {
			continue
		}
		if err := mr.renderer.InstanceBufferDestroy(ib); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
