package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/assets"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
)

type SystemManagerConfig struct {
	Job     JobSystemConfig
	Texture TextureSystemConfig
}

// SystemManager owns the long lived systems and creates the per-load ones.
type SystemManager struct {
	config    *SystemManagerConfig
	jobSystem *JobSystem
	renderer  *renderer.Renderer
	transport assets.Transport
}

func NewSystemManager(config *SystemManagerConfig, r *renderer.Renderer, transport assets.Transport) (*SystemManager, error) {
	if r == nil || transport == nil {
		err := fmt.Errorf("func NewSystemManager - renderer and transport must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	if config.Texture.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewSystemManager - config.Texture.MaxTextureCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	js, err := NewJobSystem(&config.Job)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		config:    config,
		jobSystem: js,
		renderer:  r,
		transport: transport,
	}, nil
}

func (sm *SystemManager) Renderer() *renderer.Renderer {
	return sm.renderer
}

func (sm *SystemManager) JobSystem() *JobSystem {
	return sm.jobSystem
}

// NewFetchSystem creates the fetcher of one load; ctx cancels all of its fetches.
func (sm *SystemManager) NewFetchSystem(ctx context.Context, sink ProgressSink) (*FetchSystem, error) {
	return NewFetchSystem(ctx, sm.transport, sm.jobSystem, sink)
}

// NewResourceSystem creates the empty namespace of one load.
func (sm *SystemManager) NewResourceSystem() *ResourceSystem {
	return NewResourceSystem()
}

func (sm *SystemManager) NewTextureSystem() (*TextureSystem, error) {
	cfg := sm.config.Texture
	return NewTextureSystem(&cfg, sm.renderer)
}

func (sm *SystemManager) NewModelSystem(slots []ModelSlot) (*ModelSystem, error) {
	return NewModelSystem(sm.renderer, slots)
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	return sm.renderer.Shutdown()
}
