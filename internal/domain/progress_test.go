package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Forward(t *testing.T) {
	assert.True(t, CanTransition(StatePending, StateStructureKnown))
	assert.True(t, CanTransition(StateStructureKnown, StateDownloading))
	assert.True(t, CanTransition(StateDownloading, StateTranscriptDone))
	assert.True(t, CanTransition(StateTranscriptDone, StateVideoDone))
	assert.True(t, CanTransition(StateVideoDone, StateComplete))

	// video-only and transcript-only paths skip intermediate states
	assert.True(t, CanTransition(StateDownloading, StateVideoDone))
	assert.True(t, CanTransition(StateTranscriptDone, StateComplete))
}

func TestCanTransition_Backward(t *testing.T) {
	assert.False(t, CanTransition(StateComplete, StatePending))
	assert.False(t, CanTransition(StateDownloading, StateStructureKnown))
	assert.False(t, CanTransition(StateTranscriptDone, StateDownloading))
	assert.False(t, CanTransition(StateComplete, StateComplete))
}

func TestCanTransition_Failed(t *testing.T) {
	assert.True(t, CanTransition(StatePending, StateFailed))
	assert.True(t, CanTransition(StateDownloading, StateFailed))
	assert.True(t, CanTransition(StateVideoDone, StateFailed))
	assert.False(t, CanTransition(StateComplete, StateFailed))

	assert.True(t, CanTransition(StateFailed, StateDownloading))
	assert.False(t, CanTransition(StateFailed, StateComplete))
	assert.False(t, CanTransition(StateFailed, StatePending))
}

func TestCanTransition_UnknownState(t *testing.T) {
	assert.False(t, CanTransition(AssetState("bogus"), StateDownloading))
	assert.False(t, CanTransition(StatePending, AssetState("bogus")))
}

func TestAssetProgress_IsDoneFor(t *testing.T) {
	p := NewAssetProgress("a1")
	assert.False(t, p.IsDoneFor(false))
	assert.False(t, p.IsDoneFor(true))

	p.State = StateTranscriptDone
	assert.False(t, p.IsDoneFor(false))
	assert.True(t, p.IsDoneFor(true))

	p.State = StateComplete
	assert.True(t, p.IsDoneFor(false))
	assert.True(t, p.IsDoneFor(true))
}

func TestAssetProgress_Apply(t *testing.T) {
	p := NewAssetProgress("a1")

	p.Apply(StateDownloading, TransitionMeta{Attempted: true})
	assert.Equal(t, StateDownloading, p.State)
	assert.Equal(t, 1, p.AttemptCount)
	assert.NotNil(t, p.LastAttemptAt)

	p.Apply(StateFailed, TransitionMeta{FailReason: "network timeout"})
	assert.Equal(t, StateFailed, p.State)
	assert.Equal(t, "network timeout", p.FailReason)

	p.Apply(StateDownloading, TransitionMeta{Attempted: true})
	assert.Empty(t, p.FailReason)
	assert.Equal(t, 2, p.AttemptCount)
}
