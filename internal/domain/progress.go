package domain

import (
	"fmt"
	"time"
)

// AssetState is the persisted download state of one video asset.
type AssetState string

const (
	StatePending        AssetState = "pending"
	StateStructureKnown AssetState = "structure_known"
	StateDownloading    AssetState = "downloading"
	StateTranscriptDone AssetState = "transcript_done"
	StateVideoDone      AssetState = "video_done"
	StateComplete       AssetState = "complete"
	StateFailed         AssetState = "failed"
)

// stateRank orders the forward progression. Failed sits outside the
// ordering and is handled explicitly.
var stateRank = map[AssetState]int{
	StatePending:        0,
	StateStructureKnown: 1,
	StateDownloading:    2,
	StateTranscriptDone: 3,
	StateVideoDone:      4,
	StateComplete:       5,
}

// ValidState reports whether s is a known asset state.
func ValidState(s AssetState) bool {
	if s == StateFailed {
		return true
	}
	_, ok := stateRank[s]
	return ok
}

// CanTransition validates the forward-or-Failed rule: state only moves
// forward along Pending → StructureKnown → Downloading →
// {TranscriptDone|VideoDone} → Complete, any non-terminal state may fall
// to Failed, and Failed may be retried back to Downloading.
func CanTransition(from, to AssetState) bool {
	if !ValidState(from) || !ValidState(to) {
		return false
	}
	if from == StateFailed {
		return to == StateDownloading
	}
	if to == StateFailed {
		return from != StateComplete
	}
	return stateRank[to] > stateRank[from]
}

// InvalidTransitionError is returned when a progress update would violate
// the forward-only rule. Stored state is left unchanged.
type InvalidTransitionError struct {
	AssetID string
	From    AssetState
	To      AssetState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for asset %s: %s -> %s", e.AssetID, e.From, e.To)
}

// AssetProgress is the persisted record of one asset's download progress.
// It is keyed by the stable asset id so progress survives rediscovery.
type AssetProgress struct {
	AssetID           string     `json:"asset_id" gorm:"primaryKey"`
	State             AssetState `json:"state" gorm:"not null;index"`
	FailReason        string     `json:"fail_reason,omitempty"`
	TranscriptMissing bool       `json:"transcript_missing" gorm:"default:false"`
	VideoPath         string     `json:"video_path,omitempty"`
	TranscriptPath    string     `json:"transcript_path,omitempty"`
	AttemptCount      int        `json:"attempt_count" gorm:"default:0"`
	LastAttemptAt     *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewAssetProgress returns the default record for an unseen asset.
func NewAssetProgress(assetID string) *AssetProgress {
	now := time.Now()
	return &AssetProgress{
		AssetID:   assetID,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsComplete reports whether the asset needs no further work at all.
func (p *AssetProgress) IsComplete() bool {
	return p.State == StateComplete
}

// IsDoneFor reports whether the asset needs no further work in a given
// mode: Complete always, and TranscriptDone additionally when only
// transcripts are requested.
func (p *AssetProgress) IsDoneFor(transcriptOnly bool) bool {
	if p.State == StateComplete {
		return true
	}
	return transcriptOnly && p.State == StateTranscriptDone
}

// TransitionMeta carries optional fields recorded alongside a transition.
type TransitionMeta struct {
	FailReason        string
	TranscriptMissing bool
	VideoPath         string
	TranscriptPath    string
	Attempted         bool // bump attempt count and timestamp
}

// Apply mutates the record for a validated transition.
func (p *AssetProgress) Apply(to AssetState, meta TransitionMeta) {
	p.State = to
	now := time.Now()
	p.UpdatedAt = now
	if to == StateFailed {
		p.FailReason = meta.FailReason
	} else {
		p.FailReason = ""
	}
	if meta.TranscriptMissing {
		p.TranscriptMissing = true
	}
	if meta.VideoPath != "" {
		p.VideoPath = meta.VideoPath
	}
	if meta.TranscriptPath != "" {
		p.TranscriptPath = meta.TranscriptPath
	}
	if meta.Attempted {
		p.AttemptCount++
		p.LastAttemptAt = &now
	}
}
