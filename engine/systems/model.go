package systems

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/renderer"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
)

// ModelSlot is the decoded geometry of one placement table model, or nothing.
type ModelSlot struct {
	Present  bool
	Name     string
	Geometry *formats.ModelGeometry
}

// ModelSystem holds the GPU models of one scene, addressed by placement
// table index.
type ModelSystem struct {
	models    []*metadata.Model
	present   *roaring.Bitmap
	renderer  *renderer.Renderer
	destroyed bool
}

// NewModelSystem uploads every present slot. Absent slots get no GPU
// resource but keep their index.
func NewModelSystem(r *renderer.Renderer, slots []ModelSlot) (*ModelSystem, error) {
	if r == nil {
		err := fmt.Errorf("func NewModelSystem - renderer must not be nil")
		core.LogError("%s", err)
		return nil, err
	}

	ms := &ModelSystem{
		models:   make([]*metadata.Model, len(slots)),
		present:  roaring.New(),
		renderer: r,
	}
	for i, slot := range slots {
		if !slot.Present {
			continue
		}
		if slot.Geometry == nil {
			ms.release()
			return nil, fmt.Errorf("model slot %d is present without geometry", i)
		}
		m := &metadata.Model{
			Slot:       i,
			Geometries: make([]*metadata.Geometry, 0, len(slot.Geometry.Batches)),
			Extents:    slot.Geometry.Extents,
		}
		// Register before uploading so a failure releases partial uploads.
		ms.models[i] = m
		ms.present.Add(uint32(i))
		for b := range slot.Geometry.Batches {
			g, err := r.CreateGeometry(&slot.Geometry.Batches[b])
			if err != nil {
				ms.release()
				return nil, fmt.Errorf("upload model slot %d ('%s') batch %d: %w", i, slot.Name, b, err)
			}
			m.Geometries = append(m.Geometries, g)
		}
	}
	core.LogDebug("uploaded %d of %d model slots", ms.present.GetCardinality(), len(slots))
	return ms, nil
}

// Model returns the model uploaded for placement index i.
func (ms *ModelSystem) Model(i int) (*metadata.Model, bool) {
	if i < 0 || i >= len(ms.models) || !ms.present.Contains(uint32(i)) {
		return nil, false
	}
	return ms.models[i], true
}

// Len is the length of the slot array the system was built from.
func (ms *ModelSystem) Len() int {
	return len(ms.models)
}

// Count is the number of uploaded models.
func (ms *ModelSystem) Count() int {
	return int(ms.present.GetCardinality())
}

// PresentSlots lists the uploaded slot indices in ascending order.
func (ms *ModelSystem) PresentSlots() []uint32 {
	return ms.present.ToArray()
}

func (ms *ModelSystem) Destroy() error {
	if ms.destroyed {
		return fmt.Errorf("model system: %w", core.ErrAlreadyDestroyed)
	}
	ms.destroyed = true
	return ms.release()
}

func (ms *ModelSystem) release() error {
	var errs []error
	it := ms.present.Iterator()
	for it.HasNext() {
		m := ms.models[it.Next()]
		for _, g := range m.Geometries {
			if !g.IsValid() {
				continue
			}
			if err := ms.renderer.DestroyGeometry(g); err != nil {
				errs = append(errs, fmt.Errorf("destroy model slot %d: %w", m.Slot, err))
			}
		}
	}
	return errors.Join(errs...)
}
