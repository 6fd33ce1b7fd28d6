// Package formats declares the contracts of the container decoders the
// assembly pipeline consumes and the data they produce. The binary layouts
// themselves live in decoder packages that register with this one.
package formats

import (
	"sort"

	"github.com/spaghettifunk/mapviewer/engine/math"
)

/** @brief Discriminant of a placement table model entry. */
type ModelType int32

const (
	/** @brief Static level geometry. The only kind resolved into model slots. */
	ModelTypeMapPiece  ModelType = 0
	ModelTypeObject    ModelType = 1
	ModelTypeEnemy     ModelType = 2
	ModelTypePlayer    ModelType = 4
	ModelTypeCollision ModelType = 5
	ModelTypeNavmesh   ModelType = 6
)

// Manifest is a decoded bulk archive: many named buffers from one fetch.
type Manifest interface {
	Filenames() []string
	Get(filename string) ([]byte, bool)
}

// MapManifest is a Manifest backed by a map.
type MapManifest map[string][]byte

func (mm MapManifest) Filenames() []string {
	names := make([]string, 0, len(mm))
	for n := range mm {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (mm MapManifest) Get(filename string) ([]byte, bool) {
	b, ok := mm[filename]
	return b, ok
}

// BankRecord is one entry of a split header/data texture bank.
type BankRecord struct {
	Name    string
	Payload []byte
}

/**
 * @brief A texture image as decoded from a texture container.
 * Pixel data is kept in its container format; the GPU backend decides
 * how to upload it.
 */
type TextureImage struct {
	/** @brief The name embedded in the container. */
	Name string
	/** @brief Container specific pixel format code. */
	Format uint8
	Width  uint32
	Height uint32
	/** @brief The number of mip levels stored in Data. */
	MipCount uint32
	/** @brief Raw pixel data. */
	Data []byte
}

type TextureContainer struct {
	Textures []TextureImage
}

// PlacementModel is one model entry of a placement table.
type PlacementModel struct {
	Name      string
	Type      ModelType
	FlverPath string
}

// PlacementPart places an instance of Models[ModelIndex] in the scene.
type PlacementPart struct {
	Name       string
	ModelIndex int
	Position   math.Vec3
	// Rotation in degrees per axis.
	Rotation math.Vec3
	Scale    math.Vec3
}

type PlacementTable struct {
	Models []PlacementModel
	Parts  []PlacementPart
}

// BlockContainer is an opaque decoded block-name container. It is forwarded
// untouched to the renderer.
type BlockContainer interface{}

// Batch is a renderable unit of model geometry.
type Batch struct {
	MaterialIndex int
	VertexCount   uint32
	IndexCount    uint32
	// Data holds decoder specific vertex/index payloads.
	Data interface{}
}

type ModelGeometry struct {
	Batches []Batch
	Extents math.Extents3D
}
