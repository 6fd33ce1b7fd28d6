package scene

import "github.com/spaghettifunk/mapviewer/engine/systems"

// ModelSlots is index aligned with the placement table models. A slot is
// present only for a map piece whose file resolved to at least one batch.
type ModelSlots []systems.ModelSlot

// Present lists the present slot indices in ascending order.
func (s ModelSlots) Present() []int {
	idx := make([]int, 0)
	for i := range s {
		if s[i].Present {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s ModelSlots) Count() int {
	return len(s.Present())
}
