package scene

import (
	"fmt"
	"unicode/utf8"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

const (
	DefaultBasePath    = "dks"
	DefaultManifestExt = "crg1"

	// TextureContainerSuffix ends every compressed texture container name.
	TextureContainerSuffix = ".tpf.dcx"

	mapGroupLength = 3
)

var (
	// TextureBankSuffixes are the split texture banks of a map group, in
	// registration order.
	TextureBankSuffixes = []string{"0000", "0001", "0002", "0003"}
	// LooseTextureSuffix names the map group container registered after
	// every split bank.
	LooseTextureSuffix = "9999"
)

// Paths derives the logical paths of a scene's containers.
type Paths struct {
	Base        string
	ManifestExt string
}

func DefaultPaths() Paths {
	return Paths{Base: DefaultBasePath, ManifestExt: DefaultManifestExt}
}

// MapGroup returns the texture bank prefix of a scene, its first three
// characters. Scene ids are ASCII.
func MapGroup(sceneID string) (string, error) {
	if len(sceneID) < mapGroupLength {
		return "", fmt.Errorf("'%s' is shorter than %d characters: %w", sceneID, mapGroupLength, core.ErrInvalidSceneID)
	}
	for i := 0; i < len(sceneID); i++ {
		if sceneID[i] >= utf8.RuneSelf {
			return "", fmt.Errorf("'%s' has a non-ASCII character at byte %d: %w", sceneID, i, core.ErrInvalidSceneID)
		}
	}
	return sceneID[:mapGroupLength], nil
}

// Archive is the bulk archive holding the scene's placement table and models.
func (p Paths) Archive(sceneID string) string {
	return fmt.Sprintf("%s/%s_arc.%s", p.Base, sceneID, p.ManifestExt)
}

// Materials is the material definition container shared by every scene.
func (p Paths) Materials() string {
	return p.Base + "/mtd/Mtd.mtdbnd"
}

func (p Paths) Placement(sceneID string) string {
	return fmt.Sprintf("%s/map/MapStudio/%s.msb", p.Base, sceneID)
}

func (p Paths) BankHeader(mapGroup, suffix string) string {
	return fmt.Sprintf("%s/map/%s/%s_%s.tpfbhd", p.Base, mapGroup, mapGroup, suffix)
}

func (p Paths) BankData(mapGroup, suffix string) string {
	return fmt.Sprintf("%s/map/%s/%s_%s.tpfbdt", p.Base, mapGroup, mapGroup, suffix)
}

func (p Paths) LooseTextures(mapGroup string) string {
	return fmt.Sprintf("%s/map/%s/%s_%s%s", p.Base, mapGroup, mapGroup, LooseTextureSuffix, TextureContainerSuffix)
}
