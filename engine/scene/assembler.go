package scene

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/systems"
)

// CancellationGranularity selects where a load observes its context.
type CancellationGranularity string

const (
	// CancelFetch only cancels the bulk fetches. Once they joined, the load
	// runs to completion.
	CancelFetch CancellationGranularity = "fetch"
	// CancelPhase additionally checks the context before every phase.
	CancelPhase CancellationGranularity = "phase"
)

func (g CancellationGranularity) Validate() error {
	switch g {
	case CancelFetch, CancelPhase:
		return nil
	}
	return fmt.Errorf("unknown cancellation granularity '%s' (want '%s' or '%s')", g, CancelFetch, CancelPhase)
}

type AssemblerConfig struct {
	Paths        Paths
	Cancellation CancellationGranularity
}

// Assembler turns a scene identifier into a loaded Aggregate.
type Assembler struct {
	config   *AssemblerConfig
	systems  *systems.SystemManager
	decoders formats.Decoders
	events   *core.EventSystem
	view     *renderer.RenderView

	mu    sync.Mutex
	state LoadState
}

// NewAssembler creates an assembler drawing into a "world" view of the
// system manager's renderer. events may be nil.
func NewAssembler(config *AssemblerConfig, sm *systems.SystemManager, decoders formats.Decoders, events *core.EventSystem) (*Assembler, error) {
	if sm == nil {
		err := fmt.Errorf("func NewAssembler - system manager must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	if config.Paths.Base == "" || config.Paths.ManifestExt == "" {
		err := fmt.Errorf("func NewAssembler - config.Paths.Base and config.Paths.ManifestExt must not be empty")
		core.LogError("%s", err)
		return nil, err
	}
	if config.Cancellation == "" {
		config.Cancellation = CancelFetch
	}
	if err := config.Cancellation.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	if err := decoders.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return &Assembler{
		config:   config,
		systems:  sm,
		decoders: decoders,
		events:   events,
		view:     sm.Renderer().CreateView("world"),
		state:    LoadStateIdle,
	}, nil
}

// State returns the state of the most recent load.
func (a *Assembler) State() LoadState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Assembler) setState(s LoadState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// View is the view every loaded scene draws into.
func (a *Assembler) View() *renderer.RenderView {
	return a.view
}

// Load fetches, decodes and uploads the scene sceneID. On error no GPU
// resource of the load is left behind. sink may be nil.
func (a *Assembler) Load(ctx context.Context, sceneID string, sink systems.ProgressSink) (*Aggregate, error) {
	l := &load{
		Assembler: a,
		id:        uuid.NewString(),
		sceneID:   sceneID,
		ctx:       ctx,
		sink:      sink,
		clock:     core.NewClock(),
	}
	l.fsm = newLoadStateMachine(l.id, sceneID, a.events, a.setState)
	a.setState(LoadStateIdle)

	core.LogInfo("[%s] loading scene '%s'", l.id, sceneID)
	agg, err := l.run()
	if err != nil {
		l.cleanup()
		l.fsm.fail(err)
		core.LogError("[%s] failed to load scene '%s': %s", l.id, sceneID, err.Error())
		return nil, err
	}
	if err := l.fsm.advance(LoadStateReady); err != nil {
		return nil, err
	}
	core.LogInfo("[%s] scene '%s' ready: %d/%d model slots, %d textures", l.id, sceneID, l.models.Count(), l.models.Len(), l.textures.Count())
	return agg, nil
}

// load is the state of one Assembler.Load call.
type load struct {
	*Assembler

	id       string
	sceneID  string
	mapGroup string
	ctx      context.Context
	sink     systems.ProgressSink
	fsm      *loadStateMachine
	clock    *core.Clock

	namespace *systems.ResourceSystem
	placement *formats.PlacementTable
	materials formats.BlockContainer
	slots     ModelSlots
	models    *systems.ModelSystem
	textures  *systems.TextureSystem
	mapRender *MapRenderer
}

func (l *load) run() (*Aggregate, error) {
	mg, err := MapGroup(l.sceneID)
	if err != nil {
		return nil, err
	}
	l.mapGroup = mg
	l.namespace = l.systems.NewResourceSystem()
	l.clock.Start()

	if err := l.fsm.advance(LoadStateFetching); err != nil {
		return nil, err
	}
	archive, materials, err := l.fetchBulk()
	if err != nil {
		return nil, err
	}
	l.phaseDone(1, "bulk fetch")

	if err := l.fsm.advance(LoadStateDecoding); err != nil {
		return nil, err
	}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"namespace population", func() error { return l.mount(archive, materials) }},
		{"placement decode", l.decodePlacement},
		{"material decode", l.decodeMaterials},
		{"model resolution", l.resolveModels},
		{"model upload", l.uploadModels},
		{"split texture banks", l.resolveTextureBanks},
		{"loose textures", l.resolveLooseTextures},
		{"sub-scene construction", l.buildMapRenderer},
	}
	for i, step := range steps {
		phase := i + 2
		switch phase {
		case 5:
			if err := l.fsm.advance(LoadStateResolving); err != nil {
				return nil, err
			}
		case 6:
			if err := l.fsm.advance(LoadStateUploading); err != nil {
				return nil, err
			}
		}
		if l.config.Cancellation == CancelPhase {
			if err := l.ctx.Err(); err != nil {
				return nil, fmt.Errorf("before %s: %w", step.name, err)
			}
		}
		if err := step.fn(); err != nil {
			return nil, err
		}
		l.phaseDone(phase, step.name)
	}

	agg := NewAggregate(l.view, l.textures, l.models)
	agg.AddSubScene(l.mapRender)
	return agg, nil
}

func (l *load) phaseDone(phase int, name string) {
	core.LogDebug("[%s] phase %d (%s) took %s", l.id, phase, name, l.clock.Lap())
}

// fetchBulk downloads the scene archive and the material definitions in
// parallel. The first failure cancels the other fetch.
func (l *load) fetchBulk() (archive, materials []byte, err error) {
	g, gctx := errgroup.WithContext(l.ctx)
	fs, err := l.systems.NewFetchSystem(gctx, l.sink)
	if err != nil {
		return nil, nil, err
	}

	archiveTask := fs.Fetch(l.config.Paths.Archive(l.sceneID))
	materialsTask := fs.Fetch(l.config.Paths.Materials())
	g.Go(func() error {
		b, err := archiveTask.Wait(context.Background())
		archive = b
		return err
	})
	g.Go(func() error {
		b, err := materialsTask.Wait(context.Background())
		materials = b
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return archive, materials, nil
}

func (l *load) mount(archive, materials []byte) error {
	manifest, err := l.decoders.Archive.DecodeArchive(archive)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", l.config.Paths.Archive(l.sceneID), core.ErrDecodeFailed, err)
	}
	if manifest == nil {
		return fmt.Errorf("%s: %w: decoder returned no manifest", l.config.Paths.Archive(l.sceneID), core.ErrDecodeFailed)
	}
	l.namespace.MountArchive(manifest)
	l.namespace.MountFile(l.config.Paths.Materials(), materials)
	return nil
}

func (l *load) decodePlacement() error {
	path := l.config.Paths.Placement(l.sceneID)
	rb, err := l.namespace.MustLookup(path)
	if err != nil {
		return err
	}
	table, err := l.decoders.Placement.DecodePlacement(rb.Bytes(), l.sceneID)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, core.ErrDecodeFailed, err)
	}
	if table == nil {
		return fmt.Errorf("%s: %w: decoder returned no placement table", path, core.ErrDecodeFailed)
	}
	l.placement = table
	return nil
}

func (l *load) decodeMaterials() error {
	path := l.config.Paths.Materials()
	rb, err := l.namespace.MustLookup(path)
	if err != nil {
		return err
	}
	blocks, err := l.decoders.Blocks.DecodeBlocks(rb.Bytes())
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, core.ErrDecodeFailed, err)
	}
	l.materials = blocks
	return nil
}

// resolveModels fills a slot for every map piece whose file is mounted and
// decodes to at least one batch. Anything else leaves the slot empty.
func (l *load) resolveModels() error {
	l.slots = make(ModelSlots, len(l.placement.Models))
	for i, m := range l.placement.Models {
		if m.Type != formats.ModelTypeMapPiece {
			continue
		}
		rb, ok := l.namespace.Lookup(m.FlverPath)
		if !ok {
			core.LogDebug("[%s] model '%s' not in archive: %s", l.id, m.Name, m.FlverPath)
			continue
		}
		raw, err := l.decoders.Codec.Decompress(rb.Bytes())
		if err != nil {
			return fmt.Errorf("%s: %w: %w", m.FlverPath, core.ErrDecodeFailed, err)
		}
		geom, err := l.decoders.Model.DecodeModel(raw)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", m.FlverPath, core.ErrDecodeFailed, err)
		}
		if geom == nil || len(geom.Batches) == 0 {
			core.LogDebug("[%s] model '%s' has no batches", l.id, m.Name)
			continue
		}
		l.slots[i] = systems.ModelSlot{Present: true, Name: m.Name, Geometry: geom}
	}
	return nil
}

func (l *load) uploadModels() error {
	models, err := l.systems.NewModelSystem(l.slots)
	if err != nil {
		return err
	}
	l.models = models
	return nil
}

func (l *load) resolveTextureBanks() error {
	textures, err := l.systems.NewTextureSystem()
	if err != nil {
		return err
	}
	l.textures = textures

	for _, suffix := range TextureBankSuffixes {
		hdrPath := l.config.Paths.BankHeader(l.mapGroup, suffix)
		dataPath := l.config.Paths.BankData(l.mapGroup, suffix)
		hdr, err := l.namespace.MustLookup(hdrPath)
		if err != nil {
			return err
		}
		data, err := l.namespace.MustLookup(dataPath)
		if err != nil {
			return err
		}
		records, err := l.decoders.Split.DecodeSplitArchive(hdr.Bytes(), data.Bytes())
		if err != nil {
			return fmt.Errorf("%s: %w: %w", hdrPath, core.ErrDecodeFailed, err)
		}
		for _, rec := range records {
			img, err := l.decodeBankRecord(rec)
			if err != nil {
				return fmt.Errorf("%s: %w", hdrPath, err)
			}
			if err := l.textures.AddTextures([]formats.TextureImage{img}); err != nil {
				return err
			}
		}
		core.LogDebug("[%s] registered %d textures from %s", l.id, len(records), hdrPath)
	}
	return nil
}

// decodeBankRecord decodes the single texture of a bank record and checks
// it carries the record's name.
func (l *load) decodeBankRecord(rec formats.BankRecord) (formats.TextureImage, error) {
	if !strings.HasSuffix(rec.Name, TextureContainerSuffix) {
		return formats.TextureImage{}, fmt.Errorf("record '%s': %w", rec.Name, core.ErrUnexpectedSuffix)
	}
	container, err := l.decodeTextureContainer(rec.Payload)
	if err != nil {
		return formats.TextureImage{}, fmt.Errorf("record '%s': %w", rec.Name, err)
	}
	if len(container.Textures) != 1 {
		return formats.TextureImage{}, fmt.Errorf("record '%s' holds %d textures: %w", rec.Name, len(container.Textures), core.ErrTextureCount)
	}
	img := container.Textures[0]
	if recordKey, imageKey := recordTextureKey(rec.Name), imageTextureKey(img.Name); recordKey != imageKey {
		return formats.TextureImage{}, fmt.Errorf("record '%s' (%s) holds texture '%s' (%s): %w", rec.Name, recordKey, img.Name, imageKey, core.ErrNameMismatch)
	}
	return img, nil
}

func (l *load) resolveLooseTextures() error {
	path := l.config.Paths.LooseTextures(l.mapGroup)
	rb, err := l.namespace.MustLookup(path)
	if err != nil {
		return err
	}
	container, err := l.decodeTextureContainer(rb.Bytes())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return l.textures.AddTextures(container.Textures)
}

func (l *load) decodeTextureContainer(compressed []byte) (*formats.TextureContainer, error) {
	raw, err := l.decoders.Codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDecodeFailed, err)
	}
	container, err := l.decoders.Texture.DecodeTextures(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDecodeFailed, err)
	}
	if container == nil {
		return &formats.TextureContainer{}, nil
	}
	return container, nil
}

func (l *load) buildMapRenderer() error {
	mr, err := NewMapRenderer(l.systems.Renderer(), l.textures, l.models, l.placement, l.materials)
	if err != nil {
		return err
	}
	l.mapRender = mr
	return nil
}

// cleanup releases whatever GPU resources a failed load created, sub-scene
// first, then textures, then models.
func (l *load) cleanup() {
	if l.mapRender != nil {
		if err := l.mapRender.Destroy(); err != nil {
			core.LogWarn("[%s] %s", l.id, err.Error())
		}
	}
	if l.textures != nil {
		if err := l.textures.Destroy(); err != nil {
			core.LogWarn("[%s] %s", l.id, err.Error())
		}
	}
	if l.models != nil {
		if err := l.models.Destroy(); err != nil {
			core.LogWarn("[%s] %s", l.id, err.Error())
		}
	}
}

// recordTextureKey normalizes a bank record name: path separators and the
// container suffix removed, lower-cased.
func recordTextureKey(name string) string {
	k := strings.ReplaceAll(name, "\\", "")
	k = strings.ReplaceAll(k, "/", "")
	k = strings.Replace(k, TextureContainerSuffix, "", 1)
	return strings.ToLower(k)
}

func imageTextureKey(name string) string {
	return strings.ToLower(name)
}
