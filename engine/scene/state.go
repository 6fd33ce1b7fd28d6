package scene

import (
	"fmt"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

/** @brief The state of a single scene load. */
type LoadState int

const (
	LoadStateIdle LoadState = iota
	/** @brief Downloading the bulk archive and the material definitions. */
	LoadStateFetching
	/** @brief Mounting the namespace and decoding the placement table and materials. */
	LoadStateDecoding
	/** @brief Resolving placement models into model slots. */
	LoadStateResolving
	/** @brief Uploading models and textures, building the sub-scene. */
	LoadStateUploading
	LoadStateReady
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateIdle:
		return "idle"
	case LoadStateFetching:
		return "fetching"
	case LoadStateDecoding:
		return "decoding"
	case LoadStateResolving:
		return "resolving"
	case LoadStateUploading:
		return "uploading"
	case LoadStateReady:
		return "ready"
	case LoadStateFailed:
		return "failed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s LoadState) Terminal() bool {
	return s == LoadStateReady || s == LoadStateFailed
}

// loadStateMachine walks a load through its states and fires
// EVENT_CODE_SCENE_LOAD_STATE on every transition.
type loadStateMachine struct {
	loadID  string
	sceneID string
	state   LoadState
	events  *core.EventSystem
	onEnter func(LoadState)
}

func newLoadStateMachine(loadID, sceneID string, events *core.EventSystem, onEnter func(LoadState)) *loadStateMachine {
	return &loadStateMachine{
		loadID:  loadID,
		sceneID: sceneID,
		state:   LoadStateIdle,
		events:  events,
		onEnter: onEnter,
	}
}

func (m *loadStateMachine) advance(to LoadState) error {
	if m.state.Terminal() || to != m.state+1 || to == LoadStateFailed {
		return fmt.Errorf("%s -> %s: %w", m.state, to, core.ErrInvalidTransition)
	}
	m.enter(to, nil)
	return nil
}

// fail moves any non terminal load to LoadStateFailed.
func (m *loadStateMachine) fail(cause error) {
	if m.state.Terminal() {
		return
	}
	m.enter(LoadStateFailed, cause)
}

func (m *loadStateMachine) enter(to LoadState, cause error) {
	from := m.state
	m.state = to
	core.LogDebug("[%s] %s: %s -> %s", m.loadID, m.sceneID, from, to)
	if m.onEnter != nil {
		m.onEnter(to)
	}
	if m.events != nil {
		m.events.Fire(core.EventContext{
			Type: core.EVENT_CODE_SCENE_LOAD_STATE,
			Data: &core.SceneLoadEvent{
				LoadID:  m.loadID,
				SceneID: m.sceneID,
				From:    from.String(),
				To:      to.String(),
				Err:     cause,
			},
		})
	}
}
