package state

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wardrobe/internal/domain"
)

type memoryLedger struct {
	rows []domain.StateHistory
	err  error
}

func (m *memoryLedger) Append(ctx context.Context, h *domain.StateHistory) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *h)
	return nil
}

func testService() *Service {
	n := 0
	return &Service{
		NewID: func() string { n++; return fmt.Sprintf("h-%d", n) },
		Now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestApplyAppendsExactlyOneRow(t *testing.T) {
	svc := testService()
	ledger := &memoryLedger{}
	p := domain.NewProduct("p-1", "u-1", time.Now())

	next, err := svc.Apply(context.Background(), ledger, p, domain.EventUploadMedia, "u-1")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next != domain.StateUploadingMedia {
		t.Fatalf("next = %q, want uploading_media", next)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(ledger.rows))
	}
	row := ledger.rows[0]
	if row.EntityType != domain.EntityProduct || row.EntityID != "p-1" {
		t.Fatalf("row targets %s/%s", row.EntityType, row.EntityID)
	}
	if row.FromState == nil || *row.FromState != "draft" {
		t.Fatalf("FromState = %v, want draft", row.FromState)
	}
	if row.ToState == nil || *row.ToState != "uploading_media" {
		t.Fatalf("ToState = %v, want uploading_media", row.ToState)
	}
	if row.Event != "upload_media" {
		t.Fatalf("Event = %q", row.Event)
	}
	if row.Actor == nil || *row.Actor != "u-1" {
		t.Fatalf("Actor = %v, want u-1", row.Actor)
	}
}

func TestApplyRejectionAppendsNothing(t *testing.T) {
	svc := testService()
	ledger := &memoryLedger{}
	p := domain.NewProduct("p-1", "u-1", time.Now())

	_, err := svc.Apply(context.Background(), ledger, p, domain.EventPublish, "u-1")
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if len(ledger.rows) != 0 {
		t.Fatalf("ledger rows = %d, want 0", len(ledger.rows))
	}
	if p.State() != domain.StateDraft {
		t.Fatalf("state = %q, want draft", p.State())
	}
}

func TestApplyLedgerFailurePropagates(t *testing.T) {
	svc := testService()
	ledger := &memoryLedger{err: errors.New("disk full")}
	p := domain.NewProduct("p-1", "u-1", time.Now())

	if _, err := svc.Apply(context.Background(), ledger, p, domain.EventUploadMedia, ""); err == nil {
		t.Fatal("Apply should surface the append failure")
	}
}

func TestRecordEventOnly(t *testing.T) {
	svc := testService()
	ledger := &memoryLedger{}

	if err := svc.Record(context.Background(), ledger, domain.EntityAIJob, "j-1", "start_processing", "system"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(ledger.rows))
	}
	row := ledger.rows[0]
	if row.FromState != nil || row.ToState != nil {
		t.Fatal("event-only rows must not carry states")
	}
	if row.EntityType != domain.EntityAIJob || row.Event != "start_processing" {
		t.Fatalf("row = %+v", row)
	}
}

func TestRecordEmptyActorIsNull(t *testing.T) {
	svc := testService()
	ledger := &memoryLedger{}
	if err := svc.Record(context.Background(), ledger, domain.EntityMedia, "m-1", "uploaded", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ledger.rows[0].Actor != nil {
		t.Fatalf("Actor = %v, want nil", ledger.rows[0].Actor)
	}
}
