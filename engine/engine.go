package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/mapviewer/engine/assets"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/headless"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/spaghettifunk/mapviewer/engine/scene"
	"github.com/spaghettifunk/mapviewer/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	config        *ApplicationConfig
	events        *core.EventSystem
	backend       *headless.Backend
	renderer      *renderer.Renderer
	transport     assets.Transport
	systemManager *systems.SystemManager
	assembler     *scene.Assembler
	catalog       *scene.Catalog
	clock         *core.Clock
	metrics       *core.FrameMetrics
	frameNumber   uint64

	isRunning     atomic.Bool
	reloadPending atomic.Bool

	mu      sync.Mutex
	current *scene.MapScene
}

// New builds an engine whose assets come from the configured mirror and
// decode through the decoders registered under config.Pipeline.Decoders.
func New(config *ApplicationConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	decoders, err := formats.Lookup(config.Pipeline.Decoders)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	transport, err := newTransport(&config.Assets, &config.Fetch)
	if err != nil {
		return nil, err
	}
	return newEngine(config, transport, decoders)
}

func newTransport(a *AssetsConfig, f *FetchConfig) (assets.Transport, error) {
	if a.MirrorDir != "" {
		return assets.NewDirTransport(a.MirrorDir)
	}
	return assets.NewHTTPTransport(&assets.HTTPTransportConfig{
		BaseURL: a.BaseURL,
		Timeout: f.HTTPTimeout.Duration,
	})
}

func newEngine(config *ApplicationConfig, transport assets.Transport, decoders formats.Decoders) (*Engine, error) {
	core.SetLogLevel(config.Log.Level)

	backend := headless.New()
	r, err := renderer.NewRenderer(config.Name, backend)
	if err != nil {
		return nil, err
	}

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		Job: systems.JobSystemConfig{
			MaxJobThreadCount: config.Fetch.Workers,
			QueueSize:         config.Fetch.QueueSize,
		},
		Texture: systems.TextureSystemConfig{
			MaxTextureCount: config.Pipeline.MaxTextures,
		},
	}, r, transport)
	if err != nil {
		_ = r.Shutdown()
		return nil, err
	}

	events := core.NewEventSystem()
	a, err := scene.NewAssembler(&scene.AssemblerConfig{
		Paths: scene.Paths{
			Base:        config.Assets.BasePath,
			ManifestExt: config.Assets.ManifestExt,
		},
		Cancellation: config.Pipeline.Cancellation,
	}, sm, decoders, events)
	if err != nil {
		_ = sm.Shutdown()
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageBootComplete,
		config:        config,
		events:        events,
		backend:       backend,
		renderer:      r,
		transport:     transport,
		systemManager: sm,
		assembler:     a,
		catalog:       scene.DefaultCatalog(),
		clock:         core.NewClock(),
		metrics:       core.NewFrameMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return fmt.Errorf("engine cannot be initialized in stage %d", e.currentStage)
	}

	// register some events
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_SCENE_LOAD_STATE, e, e.onLoadState)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) Catalog() *scene.Catalog {
	return e.catalog
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

// Stats reports the GPU resources and draw calls of the headless backend.
func (e *Engine) Stats() headless.Stats {
	return e.backend.Stats()
}

// Scene returns the scene being shown, nil when there is none.
func (e *Engine) Scene() *scene.MapScene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// LoadScene replaces the current scene with the catalog scene id. The old
// scene is destroyed first, so on any error no scene is shown.
func (e *Engine) LoadScene(ctx context.Context, id string, progress systems.ProgressSink) (*scene.MapScene, error) {
	s, err := e.catalog.NewScene(id)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyCurrent()

	host := &scene.Host{Assembler: e.assembler, Progress: progress}
	if err := s.Create(ctx, host); err != nil {
		core.LogWarn("no scene: %s", err.Error())
		return nil, err
	}
	e.current = s
	return s, nil
}

// destroyCurrent must be called with e.mu held.
func (e *Engine) destroyCurrent() {
	if e.current == nil {
		return
	}
	if err := e.current.Destroy(); err != nil {
		core.LogError("failed to destroy scene '%s': %s", e.current.ID, err.Error())
	}
	e.current = nil
}

// Watch reloads the current scene whenever the local mirror changes, until
// ctx is done. It needs a mirror directory.
func (e *Engine) Watch(ctx context.Context) error {
	dt, ok := e.transport.(*assets.DirTransport)
	if !ok {
		return fmt.Errorf("assets are not served from a local mirror and cannot be watched")
	}
	return dt.Watch(ctx, e.events)
}

// Run draws frames until ctx is done, the application quits or the
// configured frame count is reached.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	var targetFrameTime time.Duration
	if e.config.Render.TargetFPS > 0 {
		targetFrameTime = time.Second / time.Duration(e.config.Render.TargetFPS)
	}

	e.clock.Start()
	frameClock := core.NewClock()
	lastTime := e.clock.Elapsed()
	var drawn uint64

	for e.isRunning.Load() {
		if ctx.Err() != nil {
			break
		}
		if e.config.Render.Frames > 0 && drawn >= e.config.Render.Frames {
			break
		}
		if e.reloadPending.Swap(false) {
			e.reload(ctx)
		}

		frameClock.Start()
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - lastTime

		e.frameNumber++
		frame := &metadata.FrameContext{
			FrameNumber: e.frameNumber,
			DeltaTime:   delta,
		}
		if err := e.drawFrame(frame); err != nil {
			core.LogError("frame %d failed, shutting down: %s", frame.FrameNumber, err.Error())
			e.isRunning.Store(false)
			e.currentStage = EngineStageInitialized
			return err
		}

		frameClock.Update()
		remaining := targetFrameTime - frameClock.Elapsed()
		if remaining > 0 {
			// If there is time left, give it back to the OS.
			select {
			case <-ctx.Done():
			case <-time.After(remaining):
			}
		}
		frameClock.Update()
		e.metrics.Update(frameClock.Elapsed())
		drawn++

		lastTime = currentTime
	}

	e.isRunning.Store(false)
	e.currentStage = EngineStageInitialized
	core.LogDebug("rendered %d frames, %.1f fps, %.3f ms/frame", e.metrics.Frames(), e.metrics.FPS(), e.metrics.FrameTime())
	return nil
}

func (e *Engine) drawFrame(frame *metadata.FrameContext) error {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()

	if s != nil {
		if err := s.PrepareToRender(frame); err != nil {
			return err
		}
	}
	return e.renderer.DrawFrame(frame)
}

func (e *Engine) reload(ctx context.Context) {
	s := e.Scene()
	if s == nil {
		return
	}
	core.LogInfo("asset mirror changed, reloading scene '%s'", s.ID)
	if _, err := e.LoadScene(ctx, s.ID, nil); err != nil {
		core.LogError("reload of scene '%s' failed: %s", s.ID, err.Error())
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	e.mu.Lock()
	e.destroyCurrent()
	e.mu.Unlock()

	if err := e.events.Shutdown(); err != nil {
		return err
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		{
			core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
			e.isRunning.Store(false)
			return true
		}
	}
	return false
}

func (e *Engine) onLoadState(context core.EventContext) bool {
	se, ok := context.Data.(*core.SceneLoadEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	core.LogDebug("[%s] scene '%s': %s -> %s", se.LoadID, se.SceneID, se.From, se.To)
	return false
}

func (e *Engine) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetChangedEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	core.LogDebug("asset '%s' changed (removed: %t)", ae.Path, ae.Removed)
	e.reloadPending.Store(true)
	return false
}
