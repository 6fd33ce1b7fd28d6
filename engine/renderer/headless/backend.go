// Package headless implements a renderer backend that keeps every GPU
// resource in memory. It is used by the command line viewer and by tests.
package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

type OpKind string

const (
	OpTextureCreate         OpKind = "texture.create"
	OpTextureDestroy        OpKind = "texture.destroy"
	OpGeometryCreate        OpKind = "geometry.create"
	OpGeometryDestroy       OpKind = "geometry.destroy"
	OpInstanceBufferCreate  OpKind = "instance.create"
	OpInstanceBufferDestroy OpKind = "instance.destroy"
)

// Op is one recorded resource operation.
type Op struct {
	Kind OpKind
	ID   uint32
	Name string
}

// Stats are the counters collected since Initialize.
type Stats struct {
	Frames         uint64
	DrawCalls      uint64
	LiveTextures   int
	LiveGeometries int
	LiveInstances  int
	UploadedBytes  uint64
}

type Backend struct {
	mu          sync.Mutex
	appName     string
	textures    *core.IdentifierPool
	geometries  *core.IdentifierPool
	instances   *core.IdentifierPool
	generations map[OpKind]uint32
	ops         []Op
	inFrame     bool
	frames      uint64
	drawCalls   uint64
	uploaded    uint64
}

func New() *Backend {
	return &Backend{
		textures:    core.NewIdentifierPool(64),
		geometries:  core.NewIdentifierPool(256),
		instances:   core.NewIdentifierPool(256),
		generations: make(map[OpKind]uint32),
		ops:         make([]Op, 0),
	}
}

func (b *Backend) Initialize(appName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appName = appName
	core.LogDebug("headless renderer backend initialized for '%s'", appName)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.textures.InUse() + b.geometries.InUse() + b.instances.InUse(); n > 0 {
		core.LogWarn("headless renderer shutting down with %d live resources", n)
	}
	return nil
}

func (b *Backend) BeginFrame(frame *metadata.FrameContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return fmt.Errorf("frame %d begun while another frame is in progress", frame.FrameNumber)
	}
	b.inFrame = true
	return nil
}

func (b *Backend) EndFrame(frame *metadata.FrameContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return fmt.Errorf("frame %d ended without being begun", frame.FrameNumber)
	}
	b.inFrame = false
	b.frames++
	return nil
}

func (b *Backend) TextureCreate(image *formats.TextureImage) (*metadata.Texture, error) {
	if image == nil {
		return nil, fmt.Errorf("texture create: image is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &metadata.Texture{
		Name:     image.Name,
		Width:    image.Width,
		Height:   image.Height,
		MipCount: image.MipCount,
		Format:   image.Format,
	}
	t.ID = b.textures.Acquire(t)
	t.Generation = b.nextGeneration(OpTextureCreate)
	b.uploaded += uint64(len(image.Data))
	b.record(OpTextureCreate, t.ID, t.Name)
	return t, nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !texture.IsValid() {
		return fmt.Errorf("texture destroy: texture is not live")
	}
	if err := b.textures.Release(texture.ID); err != nil {
		return err
	}
	b.record(OpTextureDestroy, texture.ID, texture.Name)
	texture.Invalidate()
	return nil
}

func (b *Backend) CreateGeometry(batch *formats.Batch) (*metadata.Geometry, error) {
	if batch == nil {
		return nil, fmt.Errorf("geometry create: batch is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	g := &metadata.Geometry{
		MaterialIndex: batch.MaterialIndex,
		VertexCount:   batch.VertexCount,
		IndexCount:    batch.IndexCount,
	}
	g.ID = b.geometries.Acquire(g)
	g.Generation = uint16(b.nextGeneration(OpGeometryCreate) % uint32(metadata.InvalidIDUint16))
	b.record(OpGeometryCreate, g.ID, "")
	return g, nil
}

func (b *Backend) DestroyGeometry(geometry *metadata.Geometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !geometry.IsValid() {
		return fmt.Errorf("geometry destroy: geometry is not live")
	}
	if err := b.geometries.Release(geometry.ID); err != nil {
		return err
	}
	b.record(OpGeometryDestroy, geometry.ID, "")
	geometry.Invalidate()
	return nil
}

func (b *Backend) InstanceBufferCreate(part string, slot int, world math.Mat4) (*metadata.InstanceBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ib := &metadata.InstanceBuffer{
		Part:  part,
		Slot:  slot,
		World: world,
	}
	ib.ID = b.instances.Acquire(ib)
	ib.Generation = b.nextGeneration(OpInstanceBufferCreate)
	b.record(OpInstanceBufferCreate, ib.ID, part)
	return ib, nil
}

func (b *Backend) InstanceBufferDestroy(buffer *metadata.InstanceBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !buffer.IsValid() {
		return fmt.Errorf("instance buffer destroy: buffer is not live")
	}
	if err := b.instances.Release(buffer.ID); err != nil {
		return err
	}
	b.record(OpInstanceBufferDestroy, buffer.ID, buffer.Part)
	buffer.Invalidate()
	return nil
}

func (b *Backend) DrawGeometry(data *metadata.GeometryRenderData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return fmt.Errorf("draw issued outside of a frame")
	}
	if !data.Geometry.IsValid() {
		return fmt.Errorf("draw: geometry is not live")
	}
	if data.Instance != nil && !data.Instance.IsValid() {
		return fmt.Errorf("draw: instance buffer for part '%s' is not live", data.Instance.Part)
	}
	b.drawCalls++
	return nil
}

// Ops returns a copy of the recorded resource operations, oldest first.
func (b *Backend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Frames:         b.frames,
		DrawCalls:      b.drawCalls,
		LiveTextures:   b.textures.InUse(),
		LiveGeometries: b.geometries.InUse(),
		LiveInstances:  b.instances.InUse(),
		UploadedBytes:  b.uploaded,
	}
}

func (b *Backend) nextGeneration(kind OpKind) uint32 {
	b.generations[kind]++
	return b.generations[kind]
}

func (b *Backend) record(kind OpKind, id uint32, name string) {
	b.ops = append(b.ops, Op{Kind: kind, ID: id, Name: name})
}
