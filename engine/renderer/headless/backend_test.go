package headless

import (
	"testing"

	"github.com/spaghettifunk/mapviewer/engine/formats"
	"github.com/spaghettifunk/mapviewer/engine/math"
	"github.com/spaghettifunk/mapviewer/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureLifecycle(t *testing.T) {
	b := New()
	require.NoError(t, b.Initialize("test"))

	tex, err := b.TextureCreate(&formats.TextureImage{Name: "m10_stone", Width: 4, Height: 4, Data: make([]byte, 16)})
	require.NoError(t, err)
	assert.True(t, tex.IsValid())
	assert.Equal(t, 1, b.Stats().LiveTextures)
	assert.Equal(t, uint64(16), b.Stats().UploadedBytes)

	require.NoError(t, b.TextureDestroy(tex))
	assert.False(t, tex.IsValid())
	assert.Equal(t, 0, b.Stats().LiveTextures)

	// A released handle cannot be released twice.
	assert.Error(t, b.TextureDestroy(tex))
}

func TestIdsAreReused(t *testing.T) {
	b := New()
	g1, err := b.CreateGeometry(&formats.Batch{VertexCount: 3})
	require.NoError(t, err)
	require.NoError(t, b.DestroyGeometry(g1))

	g2, err := b.CreateGeometry(&formats.Batch{VertexCount: 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), g2.ID)
	assert.NotEqual(t, metadata.InvalidIDUint16, g2.Generation)
}

func TestDrawRequiresFrame(t *testing.T) {
	b := New()
	g, err := b.CreateGeometry(&formats.Batch{})
	require.NoError(t, err)
	ib, err := b.InstanceBufferCreate("m0000B0", 0, math.NewMat4Identity())
	require.NoError(t, err)

	data := &metadata.GeometryRenderData{Model: ib.World, Geometry: g, Instance: ib}
	assert.Error(t, b.DrawGeometry(data))

	frame := &metadata.FrameContext{FrameNumber: 1}
	require.NoError(t, b.BeginFrame(frame))
	assert.NoError(t, b.DrawGeometry(data))
	require.NoError(t, b.EndFrame(frame))
	assert.Error(t, b.EndFrame(frame))

	require.NoError(t, b.InstanceBufferDestroy(ib))
	require.NoError(t, b.BeginFrame(frame))
	assert.Error(t, b.DrawGeometry(data))

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Frames)
	assert.Equal(t, uint64(1), stats.DrawCalls)
}

func TestOpsAreRecordedInOrder(t *testing.T) {
	b := New()
	tex, err := b.TextureCreate(&formats.TextureImage{Name: "a"})
	require.NoError(t, err)
	g, err := b.CreateGeometry(&formats.Batch{})
	require.NoError(t, err)
	require.NoError(t, b.DestroyGeometry(g))
	require.NoError(t, b.TextureDestroy(tex))

	kinds := make([]OpKind, 0)
	for _, op := range b.Ops() {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []OpKind{OpTextureCreate, OpGeometryCreate, OpGeometryDestroy, OpTextureDestroy}, kinds)
}
