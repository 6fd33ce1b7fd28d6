package systems

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
)

/**
 * @brief An immutable buffer mounted under a logical path.
 * Consumers only ever get read-only views of the bytes.
 */
type ResourceBuffer struct {
	path string
	data []byte
}

func (rb *ResourceBuffer) Path() string { return rb.path }

// Bytes returns the mounted bytes. Callers must not modify them.
func (rb *ResourceBuffer) Bytes() []byte { return rb.data }

func (rb *ResourceBuffer) Len() int { return len(rb.data) }

func (rb *ResourceBuffer) Reader() io.ReadSeeker { return bytes.NewReader(rb.data) }

// ResourceSystem is the virtual namespace every lookup of a scene load goes
// through. Mounting a path twice keeps the last buffer.
type ResourceSystem struct {
	mu      sync.RWMutex
	buffers map[string]*ResourceBuffer
}

func NewResourceSystem() *ResourceSystem {
	return &ResourceSystem{
		buffers: make(map[string]*ResourceBuffer),
	}
}

// MountArchive mounts every file of a decoded bulk archive.
func (rs *ResourceSystem) MountArchive(manifest formats.Manifest) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	names := manifest.Filenames()
	for _, name := range names {
		data, ok := manifest.Get(name)
		if !ok {
			core.LogWarn("archive lists '%s' but has no data for it", name)
			continue
		}
		rs.mount(name, data)
	}
	core.LogDebug("mounted archive with %d files", len(names))
}

func (rs *ResourceSystem) MountFile(path string, data []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.mount(path, data)
}

func (rs *ResourceSystem) mount(path string, data []byte) {
	if _, exists := rs.buffers[path]; exists {
		core.LogDebug("remounting '%s'", path)
	}
	rs.buffers[path] = &ResourceBuffer{path: path, data: data}
}

// Lookup returns the buffer mounted under path. A miss is not an error.
func (rs *ResourceSystem) Lookup(path string) (*ResourceBuffer, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	rb, ok := rs.buffers[path]
	return rb, ok
}

// MustLookup is Lookup for paths the caller requires to be mounted.
func (rs *ResourceSystem) MustLookup(path string) (*ResourceBuffer, error) {
	rb, ok := rs.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, core.ErrMissingResource)
	}
	return rb, nil
}

func (rs *ResourceSystem) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.buffers)
}

// Paths lists every mounted path, sorted.
func (rs *ResourceSystem) Paths() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	paths := make([]string, 0, len(rs.buffers))
	for p := range rs.buffers {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Shutdown drops every mounted buffer.
func (rs *ResourceSystem) Shutdown() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.buffers = make(map[string]*ResourceBuffer)
	return nil
}
