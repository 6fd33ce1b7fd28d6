package scene

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spaghettifunk/mapviewer/engine/assets"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/headless"
	"github.com/spaghettifunk/mapviewer/engine/systems"
	"github.com/stretchr/testify/require"
)

const testSceneID = "m10_01_00_00"

// fixture is a scene whose containers decode through fake decoders.
// Texture payloads are comma separated texture names, model payloads the
// decimal number of batches, bank headers the key of their records.
type fixture struct {
	sceneID  string
	paths    Paths
	files    map[string]string
	manifest formats.MapManifest
	table    *formats.PlacementTable
	records  map[string][]formats.BankRecord

	// hooks
	onPlacement func()

	mu           sync.Mutex
	splitCalls   []string
	decompressed []string
	placementIDs []string
}

func newFixture() *fixture {
	p := DefaultPaths()
	f := &fixture{
		sceneID: testSceneID,
		paths:   p,
		files: map[string]string{
			p.Archive(testSceneID): "archive",
			p.Materials():          "materials",
		},
		table: &formats.PlacementTable{
			Models: []formats.PlacementModel{
				{Name: "m0000B0", Type: formats.ModelTypeMapPiece, FlverPath: "dks/map/m10_01_00_00/m0000B0.flver.dcx"},
				{Name: "c1000", Type: formats.ModelTypeEnemy, FlverPath: "dks/chr/c1000.chrbnd.dcx"},
			},
			Parts: []formats.PlacementPart{
				{Name: "m0000B0_0000", ModelIndex: 0, Position: math.NewVec3(1, 2, 3), Scale: math.NewVec3One()},
				{Name: "c1000_0000", ModelIndex: 1, Scale: math.NewVec3One()},
			},
		},
		records: map[string][]formats.BankRecord{
			"m10_0000": {{Name: "M10_Stone.tpf.dcx", Payload: []byte("m10_stone")}},
			"m10_0001": {{Name: "\\m10_wood.tpf.dcx", Payload: []byte("M10_Wood")}},
			"m10_0002": {},
			"m10_0003": {},
		},
	}
	f.manifest = formats.MapManifest{}
	f.manifest[p.Placement(testSceneID)] = []byte("msb")
	f.manifest["dks/map/m10_01_00_00/m0000B0.flver.dcx"] = []byte("2")
	f.manifest["dks/chr/c1000.chrbnd.dcx"] = []byte("5")
	f.manifest[p.LooseTextures("m10")] = []byte("m10_stone,m10_sky")
	for _, suffix := range TextureBankSuffixes {
		key := "m10_" + suffix
		f.manifest[p.BankHeader("m10", suffix)] = []byte(key)
		f.manifest[p.BankData("m10", suffix)] = []byte("data")
	}
	return f
}

func (f *fixture) decoders() formats.Decoders {
	return formats.Decoders{
		Archive: formats.ArchiveDecoderFunc(func(b []byte) (formats.Manifest, error) {
			if string(b) != "archive" {
				return nil, fmt.Errorf("not an archive")
			}
			if f.manifest == nil {
				return nil, nil
			}
			return f.manifest, nil
		}),
		Codec: formats.CodecFunc(func(b []byte) ([]byte, error) {
			f.mu.Lock()
			f.decompressed = append(f.decompressed, string(b))
			f.mu.Unlock()
			if string(b) == "corrupt" {
				return nil, fmt.Errorf("bad magic")
			}
			return b, nil
		}),
		Split: formats.SplitArchiveDecoderFunc(func(header, data []byte) ([]formats.BankRecord, error) {
			f.mu.Lock()
			f.splitCalls = append(f.splitCalls, string(header))
			f.mu.Unlock()
			return f.records[string(header)], nil
		}),
		Texture: formats.TextureDecoderFunc(func(b []byte) (*formats.TextureContainer, error) {
			c := &formats.TextureContainer{}
			if len(b) == 0 {
				return c, nil
			}
			for _, name := range strings.Split(string(b), ",") {
				c.Textures = append(c.Textures, formats.TextureImage{Name: name, Width: 4, Height: 4, Data: make([]byte, 16)})
			}
			return c, nil
		}),
		Placement: formats.PlacementDecoderFunc(func(b []byte, sceneID string) (*formats.PlacementTable, error) {
			f.mu.Lock()
			f.placementIDs = append(f.placementIDs, sceneID)
			f.mu.Unlock()
			if f.onPlacement != nil {
				f.onPlacement()
			}
			return f.table, nil
		}),
		Blocks: formats.BlockDecoderFunc(func(b []byte) (formats.BlockContainer, error) {
			return map[string]string{"source": string(b)}, nil
		}),
		Model: formats.ModelDecoderFunc(func(b []byte) (*formats.ModelGeometry, error) {
			n, err := strconv.Atoi(string(b))
			if err != nil {
				return nil, err
			}
			g := &formats.ModelGeometry{}
			for i := 0; i < n; i++ {
				g.Batches = append(g.Batches, formats.Batch{MaterialIndex: i, VertexCount: 3, IndexCount: 3})
			}
			return g, nil
		}),
	}
}

func (f *fixture) transport(t *testing.T) assets.Transport {
	t.Helper()
	fs := memfs.New()
	for name, content := range f.files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return assets.NewDirTransportFS(fs)
}

type testEnv struct {
	assembler *Assembler
	backend   *headless.Backend
	renderer  *renderer.Renderer
	events    *core.EventSystem

	mu     sync.Mutex
	states []string
}

func (e *testEnv) transitions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.states...)
}

func newTestEnv(t *testing.T, f *fixture, cancellation CancellationGranularity) *testEnv {
	t.Helper()
	backend := headless.New()
	r, err := renderer.NewRenderer("test", backend)
	require.NoError(t, err)

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		Job:     systems.JobSystemConfig{MaxJobThreadCount: 4, QueueSize: 8},
		Texture: systems.TextureSystemConfig{MaxTextureCount: 64},
	}, r, f.transport(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Shutdown() })

	env := &testEnv{backend: backend, renderer: r, events: core.NewEventSystem()}
	env.events.Register(core.EVENT_CODE_SCENE_LOAD_STATE, env, func(ctx core.EventContext) bool {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.states = append(env.states, ctx.Data.(*core.SceneLoadEvent).To)
		return true
	})

	a, err := NewAssembler(&AssemblerConfig{Paths: f.paths, Cancellation: cancellation}, sm, f.decoders(), env.events)
	require.NoError(t, err)
	env.assembler = a
	return env
}

func (e *testEnv) load(t *testing.T, ctx context.Context, sceneID string) (*Aggregate, error) {
	t.Helper()
	return e.assembler.Load(ctx, sceneID, nil)
}
