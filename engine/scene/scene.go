package scene

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/spaghettifunk/mapviewer/engine/systems"
)

// Host is what a viewer provides to the scenes it creates.
type Host struct {
	Assembler *Assembler
	// Progress receives the aggregate fetch progress. Optional.
	Progress systems.ProgressSink
}

// Scene is the contract between a viewer and a loadable scene.
type Scene interface {
	Create(ctx context.Context, host *Host) error
	PrepareToRender(frame *metadata.FrameContext) error
	Destroy() error
}

// MapScene is a catalog map assembled from its asset containers.
type MapScene struct {
	ID   string
	Name string

	aggregate *Aggregate
}

func NewMapScene(id, name string) *MapScene {
	return &MapScene{ID: id, Name: name}
}

func (s *MapScene) Create(ctx context.Context, host *Host) error {
	if s.aggregate != nil {
		return fmt.Errorf("scene '%s' is already created", s.ID)
	}
	if host == nil || host.Assembler == nil {
		return fmt.Errorf("scene '%s': host has no assembler", s.ID)
	}
	agg, err := host.Assembler.Load(ctx, s.ID, host.Progress)
	if err != nil {
		return err
	}
	s.aggregate = agg
	return nil
}

func (s *MapScene) PrepareToRender(frame *metadata.FrameContext) error {
	if s.aggregate == nil {
		return nil
	}
	return s.aggregate.PrepareToRender(frame)
}

func (s *MapScene) Destroy() error {
	if s.aggregate == nil {
		return fmt.Errorf("scene '%s': %w", s.ID, core.ErrAlreadyDestroyed)
	}
	err := s.aggregate.Destroy()
	s.aggregate = nil
	return err
}

// Aggregate returns the loaded resources, nil before Create or after Destroy.
func (s *MapScene) Aggregate() *Aggregate {
	return s.aggregate
}
