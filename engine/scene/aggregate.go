package scene

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/spaghettifunk/mapviewer/engine/systems"
)

// SubScene renders part of a scene into the view it is attached to.
type SubScene interface {
	Attach(view *renderer.RenderView)
	PrepareToRender(frame *metadata.FrameContext) error
	Destroy() error
}

// Aggregate owns the GPU resources of a loaded scene until Destroy.
type Aggregate struct {
	view      *renderer.RenderView
	textures  *systems.TextureSystem
	models    *systems.ModelSystem
	subScenes []SubScene
	destroyed bool
}

func NewAggregate(view *renderer.RenderView, textures *systems.TextureSystem, models *systems.ModelSystem) *Aggregate {
	return &Aggregate{
		view:      view,
		textures:  textures,
		models:    models,
		subScenes: make([]SubScene, 0, 1),
	}
}

// AddSubScene appends s and attaches it to the shared view, so it is drawn
// from the next frame on.
func (a *Aggregate) AddSubScene(s SubScene) {
	a.subScenes = append(a.subScenes, s)
	s.Attach(a.view)
}

// PrepareToRender runs every sub-scene in registration order.
func (a *Aggregate) PrepareToRender(frame *metadata.FrameContext) error {
	if a.destroyed {
		return fmt.Errorf("prepare to render: %w", core.ErrAlreadyDestroyed)
	}
	for _, s := range a.subScenes {
		if err := s.PrepareToRender(frame); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases the sub-scenes, then the textures, then the models.
func (a *Aggregate) Destroy() error {
	if a.destroyed {
		return fmt.Errorf("scene aggregate: %w", core.ErrAlreadyDestroyed)
	}
	a.destroyed = true

	var errs []error
	for _, s := range a.subScenes {
		if err := s.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.textures != nil {
		if err := a.textures.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.models != nil {
		if err := a.models.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Aggregate) Textures() *systems.TextureSystem {
	return a.textures
}

func (a *Aggregate) Models() *systems.ModelSystem {
	return a.models
}

func (a *Aggregate) SubScenes() []SubScene {
	return a.subScenes
}
