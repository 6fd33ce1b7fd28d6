package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

// DirTransport reads logical paths from a mirror of the asset set kept on a
// billy filesystem.
type DirTransport struct {
	fs billy.Filesystem
	// root is the OS directory behind fs. Empty for in-memory filesystems,
	// which cannot be watched.
	root string
}

// NewDirTransport mirrors the OS directory root.
func NewDirTransport(root string) (*DirTransport, error) {
	fi, err := os.Stat(root)
	if err != nil {
		core.LogError("asset mirror '%s' is not accessible: %s", root, err.Error())
		return nil, err
	}
	if !fi.IsDir() {
		err := fmt.Errorf("func NewDirTransport - '%s' is not a directory", root)
		core.LogError("%s", err)
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &DirTransport{
		fs:   osfs.New(abs),
		root: abs,
	}, nil
}

// NewDirTransportFS serves logical paths from an arbitrary billy filesystem.
func NewDirTransportFS(fs billy.Filesystem) *DirTransport {
	return &DirTransport{fs: fs}
}

func (t *DirTransport) Fetch(ctx context.Context, path string, rng *Range, onProgress OnProgress) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimLeft(path, "/")

	fi, err := t.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
		}
		return nil, err
	}
	f, err := t.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		r     io.Reader = f
		total           = fi.Size()
	)
	if rng != nil {
		if rng.Offset > total {
			return nil, fmt.Errorf("%s: range %s starts past the end of a %d byte file", path, rng.String(), total)
		}
		size := total - rng.Offset
		if rng.Size > 0 && rng.Size < size {
			size = rng.Size
		}
		r = io.NewSectionReader(f, rng.Offset, size)
		total = size
	}
	return readAll(ctx, r, total, onProgress)
}

// Watch fires core.EVENT_CODE_ASSET_CHANGED for every file created, written
// or removed below the mirror root until ctx is done.
func (t *DirTransport) Watch(ctx context.Context, events *core.EventSystem) error {
	if t.root == "" {
		return fmt.Errorf("asset mirror is not backed by a directory and cannot be watched")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := t.watchRecursive(w, t.root); err != nil {
		return err
	}
	core.LogInfo("watching asset mirror '%s'", t.root)

	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := t.watchRecursive(w, e.Name); err != nil {
						core.LogWarn("failed to watch new directory '%s': %s", e.Name, err.Error())
					}
					continue
				}
			}
			removed := e.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			if !removed && e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			rel, err := filepath.Rel(t.root, e.Name)
			if err != nil {
				continue
			}
			events.Fire(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Data: &core.AssetChangedEvent{
					Path:    filepath.ToSlash(rel),
					Removed: removed,
				},
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			core.LogError("%s", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// watchRecursive adds path and every directory below it to the watch list.
func (t *DirTransport) watchRecursive(w *fsnotify.Watcher, path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.Add(walkPath)
		}
		return nil
	})
}
