package domain

import (
	"errors"
	"testing"
	"time"
)

var allStates = []ProductState{
	StateDraft, StateUploadingMedia, StateMediaReady, StateAIPending,
	StateAIProcessing, StateAIReady, StateAIFailed, StateReadyForPublish,
	StatePublished, StateArchived,
}

var allEvents = []Event{
	EventUploadMedia, EventMediaUploaded, EventMediaFailed, EventStartAI,
	EventAIStarted, EventAICompleted, EventAIFailed, EventRetryAI,
	EventConfirmData, EventPublish, EventArchive, EventReset,
}

func productIn(t *testing.T, st ProductState) *Product {
	t.Helper()
	p, err := ProductFromRecord(ProductRecord{
		ID:      "p-1",
		OwnerID: "u-1",
		State:   string(st),
	})
	if err != nil {
		t.Fatalf("ProductFromRecord(%q): %v", st, err)
	}
	return p
}

func TestTransitionTableLegalMoves(t *testing.T) {
	cases := []struct {
		from  ProductState
		event Event
		to    ProductState
	}{
		{StateDraft, EventUploadMedia, StateUploadingMedia},
		{StateUploadingMedia, EventMediaUploaded, StateMediaReady},
		{StateUploadingMedia, EventMediaFailed, StateDraft},
		{StateMediaReady, EventStartAI, StateAIPending},
		{StateMediaReady, EventReset, StateDraft},
		{StateAIPending, EventAIStarted, StateAIProcessing},
		{StateAIPending, EventAIFailed, StateAIFailed},
		{StateAIProcessing, EventAICompleted, StateAIReady},
		{StateAIProcessing, EventAIFailed, StateAIFailed},
		{StateAIFailed, EventRetryAI, StateAIPending},
		{StateAIFailed, EventReset, StateDraft},
		{StateAIReady, EventConfirmData, StateReadyForPublish},
		{StateAIReady, EventReset, StateDraft},
		{StateReadyForPublish, EventPublish, StatePublished},
		{StateReadyForPublish, EventReset, StateDraft},
		{StatePublished, EventArchive, StateArchived},
	}
	for _, tc := range cases {
		p := productIn(t, tc.from)
		next, err := p.Transition(tc.event)
		if err != nil {
			t.Fatalf("Transition(%q from %q): %v", tc.event, tc.from, err)
		}
		if next != tc.to {
			t.Fatalf("Transition(%q from %q) = %q, want %q", tc.event, tc.from, next, tc.to)
		}
		if p.State() != tc.to {
			t.Fatalf("state after transition = %q, want %q", p.State(), tc.to)
		}
	}
}

func TestTransitionRejectsEveryPairAbsentFromTable(t *testing.T) {
	for _, st := range allStates {
		for _, ev := range allEvents {
			if _, legal := productTransitions[st][ev]; legal {
				continue
			}
			p := productIn(t, st)
			_, err := p.Transition(ev)
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("Transition(%q from %q): got %v, want InvalidTransitionError", ev, st, err)
			}
			if invalid.State != st || invalid.Event != ev {
				t.Fatalf("error names state %q event %q, want %q %q", invalid.State, invalid.Event, st, ev)
			}
			if p.State() != st {
				t.Fatalf("state changed to %q on rejected event", p.State())
			}
		}
	}
}

func TestTransitionFromDraft(t *testing.T) {
	p := NewProduct("p-1", "u-1", time.Now())
	next, err := p.Transition(EventUploadMedia)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != StateUploadingMedia {
		t.Fatalf("next = %q, want %q", next, StateUploadingMedia)
	}
}

func TestTransitionFromPublishedNamesAllowedEvents(t *testing.T) {
	p := productIn(t, StatePublished)
	_, err := p.Transition(EventStartAI)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if len(invalid.Allowed) != 1 || invalid.Allowed[0] != EventArchive {
		t.Fatalf("Allowed = %v, want [archive]", invalid.Allowed)
	}
	if p.State() != StatePublished {
		t.Fatalf("state = %q, want published", p.State())
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	for _, ev := range allEvents {
		p := productIn(t, StateArchived)
		if _, err := p.Transition(ev); err == nil {
			t.Fatalf("Transition(%q from archived) succeeded", ev)
		}
	}
}

func TestProductFromRecordRejectsUnknownState(t *testing.T) {
	_, err := ProductFromRecord(ProductRecord{ID: "p-1", OwnerID: "u-1", State: "limbo"})
	var unknown *UnknownStateError
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v, want UnknownStateError", err)
	}
	if unknown.State != "limbo" {
		t.Fatalf("State = %q, want limbo", unknown.State)
	}
}

func TestProductFromRecordDefaultsContainers(t *testing.T) {
	p, err := ProductFromRecord(ProductRecord{ID: "p-1", OwnerID: "u-1", State: string(StateDraft)})
	if err != nil {
		t.Fatalf("ProductFromRecord: %v", err)
	}
	if p.Attributes == nil || p.Tags == nil {
		t.Fatal("attributes and tags must never be nil after hydration")
	}
}

func TestAllowedEventsSorted(t *testing.T) {
	got := AllowedEvents(StateUploadingMedia)
	if len(got) != 2 || got[0] != EventMediaFailed || got[1] != EventMediaUploaded {
		t.Fatalf("AllowedEvents = %v, want [media_failed media_uploaded]", got)
	}
}
