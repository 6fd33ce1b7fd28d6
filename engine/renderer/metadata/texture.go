package metadata

const (
	InvalidIDUint64 uint64 = 18446744073709551615
	InvalidID       uint32 = 4294967295
	InvalidIDUint16 uint16 = 65535
)

/**
 * @brief Represents a texture uploaded to the GPU.
 */
type Texture struct {
	/** @brief The backend texture identifier. */
	ID uint32
	/** @brief The texture Generation. InvalidID once released. */
	Generation uint32
	/** @brief The texture Name, lower-cased. */
	Name string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of mip levels uploaded. */
	MipCount uint32
	/** @brief Container specific pixel format code. */
	Format uint8
}

// IsValid reports whether the texture still refers to live GPU memory.
func (t *Texture) IsValid() bool {
	return t != nil && t.ID != InvalidID && t.Generation != InvalidID
}

// Invalidate marks the texture as released.
func (t *Texture) Invalidate() {
	t.ID = InvalidID
	t.Generation = InvalidID
}
