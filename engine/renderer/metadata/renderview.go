package metadata

import (
	"time"

	"github.com/spaghettifunk/mapviewer/engine/math"
)

/** @brief Per-frame data handed to every sub-scene. */
type FrameContext struct {
	/** @brief Monotonic frame counter, starting at 1. */
	FrameNumber uint64
	/** @brief Time since the previous frame. */
	DeltaTime time.Duration
}

/** @brief A single draw: one geometry with one instance's world matrix. */
type GeometryRenderData struct {
	Model    math.Mat4
	Geometry *Geometry
	Instance *InstanceBuffer
}

/** @brief The draws a view collected for one frame. */
type RenderViewPacket struct {
	/** @brief The name of the view that built the packet. */
	ViewName    string
	FrameNumber uint64
	Geometries  []GeometryRenderData
}
