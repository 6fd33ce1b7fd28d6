package formats

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

// ArchiveDecoder decodes a bulk archive into its manifest.
type ArchiveDecoder interface {
	DecodeArchive(data []byte) (Manifest, error)
}

// Codec decompresses a compressed container. Malformed input is an error.
type Codec interface {
	Decompress(data []byte) ([]byte, error)
}

// SplitArchiveDecoder decodes a texture bank split in a header and a data blob.
type SplitArchiveDecoder interface {
	DecodeSplitArchive(header, data []byte) ([]BankRecord, error)
}

type TextureDecoder interface {
	DecodeTextures(data []byte) (*TextureContainer, error)
}

// PlacementDecoder decodes a scene placement table. sceneID carries the
// naming conventions the decoder needs.
type PlacementDecoder interface {
	DecodePlacement(data []byte, sceneID string) (*PlacementTable, error)
}

type BlockDecoder interface {
	DecodeBlocks(data []byte) (BlockContainer, error)
}

type ModelDecoder interface {
	DecodeModel(data []byte) (*ModelGeometry, error)
}

// Decoders bundles every decoder a scene load needs.
type Decoders struct {
	Archive   ArchiveDecoder
	Codec     Codec
	Split     SplitArchiveDecoder
	Texture   TextureDecoder
	Placement PlacementDecoder
	Blocks    BlockDecoder
	Model     ModelDecoder
}

// Validate reports the first missing decoder.
func (d Decoders) Validate() error {
	missing := []struct {
		name string
		set  bool
	}{
		{"archive", d.Archive != nil},
		{"codec", d.Codec != nil},
		{"split archive", d.Split != nil},
		{"texture", d.Texture != nil},
		{"placement", d.Placement != nil},
		{"blocks", d.Blocks != nil},
		{"model", d.Model != nil},
	}
	for _, m := range missing {
		if !m.set {
			return fmt.Errorf("%s decoder: %w", m.name, core.ErrNoDecoder)
		}
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Decoders)
)

// Register makes a decoder set available under name. Decoder packages call
// it from init, the same way database/sql drivers register. Registering the
// same name twice panics.
func Register(name string, d Decoders) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("formats: Register called twice for decoder set " + name)
	}
	registry[name] = d
}

// Lookup returns the decoder set registered under name.
func Lookup(name string) (Decoders, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[name]
	if !ok {
		return Decoders{}, fmt.Errorf("decoder set '%s' is not registered, link a package that registers it (e.g. a blank import in main.go): %w", name, core.ErrNoDecoder)
	}
	return d, nil
}

// Registered lists the registered decoder set names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// unregister is used by tests to keep the global registry clean.
func unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// The Func adapters let plain functions satisfy the decoder interfaces.

type ArchiveDecoderFunc func(data []byte) (Manifest, error)

func (f ArchiveDecoderFunc) DecodeArchive(data []byte) (Manifest, error) { return f(data) }

type CodecFunc func(data []byte) ([]byte, error)

func (f CodecFunc) Decompress(data []byte) ([]byte, error) { return f(data) }

type SplitArchiveDecoderFunc func(header, data []byte) ([]BankRecord, error)

func (f SplitArchiveDecoderFunc) DecodeSplitArchive(header, data []byte) ([]BankRecord, error) {
	return f(header, data)
}

type TextureDecoderFunc func(data []byte) (*TextureContainer, error)

func (f TextureDecoderFunc) DecodeTextures(data []byte) (*TextureContainer, error) { return f(data) }

type PlacementDecoderFunc func(data []byte, sceneID string) (*PlacementTable, error)

func (f PlacementDecoderFunc) DecodePlacement(data []byte, sceneID string) (*PlacementTable, error) {
	return f(data, sceneID)
}

type BlockDecoderFunc func(data []byte) (BlockContainer, error)

func (f BlockDecoderFunc) DecodeBlocks(data []byte) (BlockContainer, error) { return f(data) }

type ModelDecoderFunc func(data []byte) (*ModelGeometry, error)

func (f ModelDecoderFunc) DecodeModel(data []byte) (*ModelGeometry, error) { return f(data) }
