package core

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierPool(t *testing.T) {
	p := NewIdentifierPool(2)
	a, b := "a", "b"

	assert.Equal(t, uint32(0), p.Acquire(&a))
	assert.Equal(t, uint32(1), p.Acquire(&b))
	assert.Equal(t, 2, p.InUse())

	require.NoError(t, p.Release(0))
	assert.Nil(t, p.Owner(0))
	assert.Error(t, p.Release(0))
	assert.Error(t, p.Release(9))

	// Released slots are reused first.
	assert.Equal(t, uint32(0), p.Acquire(&b))
	assert.Same(t, &b, p.Owner(0))
	assert.Nil(t, p.Owner(9))
}

func TestIdentifierPoolConcurrent(t *testing.T) {
	p := NewIdentifierPool(0)
	var wg sync.WaitGroup
	ids := make([]uint32, 64)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = p.Acquire(i + 1)
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 64, p.InUse())
}

func TestEventSystem(t *testing.T) {
	es := NewEventSystem()
	first, second := new(int), new(int)
	var calls []string

	require.True(t, es.Register(EVENT_CODE_ASSET_CHANGED, first, func(ctx EventContext) bool {
		calls = append(calls, "first:"+ctx.Data.(*AssetChangedEvent).Path)
		return false
	}))
	require.True(t, es.Register(EVENT_CODE_ASSET_CHANGED, second, func(ctx EventContext) bool {
		calls = append(calls, "second")
		return true
	}))
	assert.False(t, es.Register(EVENT_CODE_ASSET_CHANGED, first, func(EventContext) bool { return false }))
	assert.False(t, es.Register(MAX_MESSAGE_CODES, first, func(EventContext) bool { return false }))

	handled := es.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetChangedEvent{Path: "dks/a"}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first:dks/a", "second"}, calls)

	assert.True(t, es.Unregister(EVENT_CODE_ASSET_CHANGED, second))
	assert.False(t, es.Unregister(EVENT_CODE_ASSET_CHANGED, second))
	assert.False(t, es.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetChangedEvent{Path: "dks/b"}}))

	require.NoError(t, es.Shutdown())
	assert.False(t, es.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetChangedEvent{}}))

	var nilSystem *EventSystem
	assert.False(t, nilSystem.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Zero(t, c.Elapsed(), "a stopped clock does not advance")

	c.Start()
	now = now.Add(2 * time.Second)
	c.Update()
	assert.Equal(t, 2*time.Second, c.Elapsed())

	now = now.Add(time.Second)
	assert.Equal(t, 3*time.Second, c.Lap())
	now = now.Add(time.Second)
	assert.Equal(t, time.Second, c.Lap())

	c.Stop()
	now = now.Add(time.Hour)
	c.Update()
	assert.Zero(t, c.Elapsed())
}

func TestFrameMetrics(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < 100; i++ {
		m.Update(20 * time.Millisecond)
	}
	assert.Equal(t, uint64(100), m.Frames())
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)
	assert.InDelta(t, 50.0, m.FPS(), 1)
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { SetLogLevel("info") })
	assert.True(t, SetLogLevel("DEBUG"))
	assert.False(t, SetLogLevel("loud"))
}

func TestLogErrorKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(os.Stderr) })

	LogError("%s", errors.New("texture bank 100% corrupt: %d"))
	assert.Contains(t, buf.String(), "texture bank 100% corrupt: %d")
	assert.NotContains(t, buf.String(), "%!")
}
