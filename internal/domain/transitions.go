package domain

import "sort"

// ProductState enumerates product lifecycle states.
type ProductState string

const (
	StateDraft           ProductState = "draft"
	StateUploadingMedia  ProductState = "uploading_media"
	StateMediaReady      ProductState = "media_ready"
	StateAIPending       ProductState = "ai_pending"
	StateAIProcessing    ProductState = "ai_processing"
	StateAIReady         ProductState = "ai_ready"
	StateAIFailed        ProductState = "ai_failed"
	StateReadyForPublish ProductState = "ready_for_publish"
	StatePublished       ProductState = "published"
	StateArchived        ProductState = "archived"
)

// Event names a requested product transition.
type Event string

const (
	EventUploadMedia   Event = "upload_media"
	EventMediaUploaded Event = "media_uploaded"
	EventMediaFailed   Event = "media_failed"
	EventStartAI       Event = "start_ai"
	EventAIStarted     Event = "ai_started"
	EventAICompleted   Event = "ai_completed"
	EventAIFailed      Event = "ai_failed"
	EventRetryAI       Event = "retry_ai"
	EventConfirmData   Event = "confirm_data"
	EventPublish       Event = "publish"
	EventArchive       Event = "archive"
	EventReset         Event = "reset"
)

// productTransitions is the single source of truth for legal product moves.
// Any (state, event) pair absent from this table is illegal. archived is
// terminal.
var productTransitions = map[ProductState]map[Event]ProductState{
	StateDraft: {
		EventUploadMedia: StateUploadingMedia,
	},
	StateUploadingMedia: {
		EventMediaUploaded: StateMediaReady,
		EventMediaFailed:   StateDraft,
	},
	StateMediaReady: {
		EventStartAI: StateAIPending,
		EventReset:   StateDraft,
	},
	StateAIPending: {
		EventAIStarted: StateAIProcessing,
		EventAIFailed:  StateAIFailed,
	},
	StateAIProcessing: {
		EventAICompleted: StateAIReady,
		EventAIFailed:    StateAIFailed,
	},
	StateAIFailed: {
		EventRetryAI: StateAIPending,
		EventReset:   StateDraft,
	},
	StateAIReady: {
		EventConfirmData: StateReadyForPublish,
		EventReset:       StateDraft,
	},
	StateReadyForPublish: {
		EventPublish: StatePublished,
		EventReset:   StateDraft,
	},
	StatePublished: {
		EventArchive: StateArchived,
	},
	StateArchived: {},
}

// ValidProductState reports whether s is a member of the enumerated state set.
func ValidProductState(s ProductState) bool {
	_, ok := productTransitions[s]
	return ok
}

// AllowedEvents returns the events legal from the given state, sorted for
// deterministic diagnostics.
func AllowedEvents(s ProductState) []Event {
	moves := productTransitions[s]
	events := make([]Event, 0, len(moves))
	for ev := range moves {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}
