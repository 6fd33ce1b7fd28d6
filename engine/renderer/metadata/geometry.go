package metadata

import (
	"github.com/spaghettifunk/mapviewer/engine/math"
)

/**
 * @brief Represents one renderable batch of a model uploaded to the GPU.
 */
type Geometry struct {
	/** @brief The backend geometry identifier. */
	ID uint32
	/** @brief The geometry generation. InvalidIDUint16 once released. */
	Generation uint16
	/** @brief The index of the material the batch is drawn with. */
	MaterialIndex int
	VertexCount   uint32
	IndexCount    uint32
}

func (g *Geometry) IsValid() bool {
	return g != nil && g.ID != InvalidID && g.Generation != InvalidIDUint16
}

func (g *Geometry) Invalidate() {
	g.ID = InvalidID
	g.Generation = InvalidIDUint16
}

/**
 * @brief A model uploaded to the GPU: one geometry per batch.
 */
type Model struct {
	/** @brief The placement table index this model belongs to. */
	Slot int
	/** @brief Uploaded batches, in decoded order. */
	Geometries []*Geometry
	/** @brief The extents of the model in local coordinates. */
	Extents math.Extents3D
}

// IsValid reports whether every batch of the model is live.
func (m *Model) IsValid() bool {
	if m == nil || len(m.Geometries) == 0 {
		return false
	}
	for _, g := range m.Geometries {
		if !g.IsValid() {
			return false
		}
	}
	return true
}

/**
 * @brief Per-part instance data (the world matrix) stored on the GPU.
 */
type InstanceBuffer struct {
	ID         uint32
	Generation uint32
	/** @brief The placement part the buffer was allocated for. */
	Part string
	/** @brief The model slot drawn with this buffer. */
	Slot  int
	World math.Mat4
}

func (b *InstanceBuffer) IsValid() bool {
	return b != nil && b.ID != InvalidID && b.Generation != InvalidID
}

func (b *InstanceBuffer) Invalidate() {
	b.ID = InvalidID
	b.Generation = InvalidID
}
