package scene

import (
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

const CollectionID = "dks"

type CatalogEntry struct {
	ID   string
	Name string
}

// Catalog lists the loadable scenes of one collection, in display order.
type Catalog struct {
	ID      string
	Entries []CatalogEntry
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		ID: CollectionID,
		Entries: []CatalogEntry{
			{"m10_01_00_00", "Undead Burg / Parish"},
			{"m10_00_00_00", "The Depths"},
			{"m10_02_00_00", "Firelink Shrine"},
			{"m11_00_00_00", "Painted World"},
			{"m12_00_00_00", "Darkroot Forest"},
			{"m12_01_00_00", "Oolacile"},
			{"m13_00_00_00", "The Catacombs"},
			{"m13_01_00_00", "Tomb of the Giants"},
			{"m13_02_00_00", "Ash Lake"},
			{"m14_00_00_00", "Blighttown"},
			{"m14_01_00_00", "Demon Ruins"},
			{"m15_00_00_00", "Sen's Fortress"},
			{"m15_01_00_00", "Anor Londo"},
			{"m16_00_00_00", "New Londo Ruins"},
			{"m17_00_00_00", "Duke's Archives / Crystal Caves"},
			{"m18_00_00_00", "Kiln of the First Flame"},
			{"m18_01_00_00", "Undead Asylum"},
		},
	}
}

func (c *Catalog) Lookup(id string) (CatalogEntry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// NewScene creates the scene for a catalog entry.
func (c *Catalog) NewScene(id string) (*MapScene, error) {
	e, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("'%s' is not in collection '%s': %w", id, c.ID, core.ErrInvalidSceneID)
	}
	return NewMapScene(e.ID, e.Name), nil
}
