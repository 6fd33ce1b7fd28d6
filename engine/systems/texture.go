package systems

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

// TextureSystem holds the GPU textures of one scene, in registration order.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Array of registered textures, in registration order.
	RegisteredTextures []*metadata.Texture
	// Lower-cased name to the first texture registered under it.
	RegisteredTextureTable map[string]*metadata.Texture

	renderer  *renderer.Renderer
	destroyed bool
}

func NewTextureSystem(config *TextureSystemConfig, r *renderer.Renderer) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	if r == nil {
		err := fmt.Errorf("func NewTextureSystem - renderer must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	return &TextureSystem{
		Config:                 config,
		RegisteredTextures:     make([]*metadata.Texture, 0),
		RegisteredTextureTable: make(map[string]*metadata.Texture),
		renderer:               r,
	}, nil
}

// AddTextures uploads images and registers them in order. A name that is
// already registered keeps its first texture for lookups.
func (ts *TextureSystem) AddTextures(images []formats.TextureImage) error {
	if ts.destroyed {
		return fmt.Errorf("add textures: %w", core.ErrAlreadyDestroyed)
	}
	if uint32(len(ts.RegisteredTextures)+len(images)) > ts.Config.MaxTextureCount {
		err := fmt.Errorf("texture system cannot hold %d more textures (max=%d)", len(images), ts.Config.MaxTextureCount)
		core.LogError("%s", err)
		return err
	}
	for i := range images {
		img := &images[i]
		t, err := ts.renderer.TextureCreate(img)
		if err != nil {
			return fmt.Errorf("upload texture '%s': %w", img.Name, err)
		}
		t.Name = strings.ToLower(img.Name)
		ts.RegisteredTextures = append(ts.RegisteredTextures, t)
		if _, exists := ts.RegisteredTextureTable[t.Name]; exists {
			core.LogDebug("texture '%s' already registered, keeping the first one", t.Name)
			continue
		}
		ts.RegisteredTextureTable[t.Name] = t
	}
	return nil
}

// Find looks a texture up by name, case-insensitively.
func (ts *TextureSystem) Find(name string) (*metadata.Texture, bool) {
	t, ok := ts.RegisteredTextureTable[strings.ToLower(name)]
	return t, ok
}

// Names returns the registered texture names in registration order.
func (ts *TextureSystem) Names() []string {
	names := make([]string, len(ts.RegisteredTextures))
	for i, t := range ts.RegisteredTextures {
		names[i] = t.Name
	}
	return names
}

func (ts *TextureSystem) Count() int {
	return len(ts.RegisteredTextures)
}

// Destroy releases every texture. The handles stay in the system, invalidated.
func (ts *TextureSystem) Destroy() error {
	if ts.destroyed {
		return fmt.Errorf("texture system: %w", core.ErrAlreadyDestroyed)
	}
	ts.destroyed = true

	var errs []error
	for _, t := range ts.RegisteredTextures {
		if !t.IsValid() {
			continue
		}
		if err := ts.renderer.TextureDestroy(t); err != nil {
			errs = append(errs, fmt.Errorf("destroy texture '%s': %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}
