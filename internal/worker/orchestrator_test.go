package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wardrobe/internal/domain"
	"wardrobe/internal/providers/analyze"
	"wardrobe/internal/state"
)

// memStore is an in-memory stand-in for the pipeline store. Transactions
// stage writes and apply them on commit, mirroring the visibility the real
// store gives: nothing leaks out of an uncommitted transaction.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]domain.AIJob
	media    map[string]domain.Media
	products map[string]domain.Product
	history  []domain.StateHistory

	failNextProductCommit bool
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     map[string]domain.AIJob{},
		media:    map[string]domain.Media{},
		products: map[string]domain.Product{},
	}
}

func (s *memStore) begin(ctx context.Context) (Tx, error) {
	return &memTx{store: s}, nil
}

type memTx struct {
	store *memStore

	stagedJobs     []domain.AIJob
	stagedProducts []domain.Product
	stagedHistory  []domain.StateHistory
	done           bool
}

func (t *memTx) JobForUpdate(ctx context.Context, jobID string) (*domain.AIJob, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	j, ok := t.store.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := j
	return &copy, nil
}

func (t *memTx) MediaByID(ctx context.Context, mediaID string) (*domain.Media, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	m, ok := t.store.media[mediaID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := m
	return &copy, nil
}

func (t *memTx) InsertProduct(ctx context.Context, p *domain.Product) error {
	t.stagedProducts = append(t.stagedProducts, *p)
	return nil
}

func (t *memTx) UpdateJob(ctx context.Context, j *domain.AIJob) error {
	t.stagedJobs = append(t.stagedJobs, *j)
	return nil
}

func (t *memTx) Append(ctx context.Context, h *domain.StateHistory) error {
	t.stagedHistory = append(t.stagedHistory, *h)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return errors.New("tx already finished")
	}
	t.done = true
	if t.store.failNextProductCommit && len(t.stagedProducts) > 0 {
		t.store.failNextProductCommit = false
		return errors.New("commit refused")
	}
	for _, j := range t.stagedJobs {
		t.store.jobs[j.ID] = j
	}
	for _, p := range t.stagedProducts {
		t.store.products[p.ID] = p
	}
	t.store.history = append(t.store.history, t.stagedHistory...)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

type stubAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *analyze.Result
	err    error
}

func (a *stubAnalyzer) Analyze(ctx context.Context, req analyze.Request) (*analyze.Result, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *stubAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func redJacketResult() *analyze.Result {
	raw := []byte(`{"title_suggested":"Red Jacket","tags":["red","jacket"]}`)
	return &analyze.Result{
		TitleSuggested: "Red Jacket",
		Attributes:     map[string]any{},
		Tags:           []string{"red", "jacket"},
		Raw:            json.RawMessage(raw),
	}
}

func testOrchestrator(store *memStore, analyzer Analyzer) *Orchestrator {
	n := 0
	svc := state.NewService()
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewOrchestrator(Options{
		Begin:    store.begin,
		Analyzer: analyzer,
		States:   svc,
		Logger:   zerolog.Nop(),
		NewID:    func() string { n++; return fmt.Sprintf("p-%d", n) },
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func seedJob(store *memStore) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	store.jobs["j-1"] = *domain.NewAIJob("j-1", "u-1", "m-1", nil, now)
	store.media["m-1"] = domain.Media{
		ID: "m-1", OwnerID: "u-1", Bucket: "products", ObjectKey: "u-1/m-1.jpg",
		ContentType: "image/jpeg", CreatedAt: now,
	}
}

func jobEvents(store *memStore, jobID string) []string {
	var events []string
	for _, h := range store.history {
		if h.EntityType == domain.EntityAIJob && h.EntityID == jobID {
			events = append(events, h.Event)
		}
	}
	return events
}

func TestRunSuccessCreatesDraftProduct(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	job := store.jobs["j-1"]
	if job.Status != domain.JobDone {
		t.Fatalf("job status = %q, want done", job.Status)
	}
	if job.DraftProductID == "" {
		t.Fatal("draft product id not set")
	}
	if string(job.Result) != `{"title_suggested":"Red Jacket","tags":["red","jacket"]}` {
		t.Fatalf("job result = %s", job.Result)
	}

	product, ok := store.products[job.DraftProductID]
	if !ok {
		t.Fatalf("product %s not created", job.DraftProductID)
	}
	if product.State() != domain.StateDraft {
		t.Fatalf("product state = %q, want draft", product.State())
	}
	if product.Title != "Red Jacket" {
		t.Fatalf("product title = %q", product.Title)
	}
	if len(product.Tags) != 2 || product.Tags[0] != "red" || product.Tags[1] != "jacket" {
		t.Fatalf("product tags = %v", product.Tags)
	}
	if len(product.Attributes) != 0 {
		t.Fatalf("product attributes = %v, want empty", product.Attributes)
	}
	if product.OwnerID != "u-1" {
		t.Fatalf("product owner = %q", product.OwnerID)
	}

	events := jobEvents(store, "j-1")
	if len(events) != 2 || events[0] != "start_processing" || events[1] != "ai_done" {
		t.Fatalf("ledger events = %v", events)
	}
}

func TestRunMissingJobIsSilentNoop(t *testing.T) {
	store := newMemStore()
	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "ghost"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Fatal("analyzer must not be called for a missing job")
	}
	if len(store.history) != 0 {
		t.Fatalf("history = %v, want empty", store.history)
	}
}

func TestRunMissingMediaFailsJob(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	delete(store.media, "m-1")
	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job := store.jobs["j-1"]
	if job.Status != domain.JobFailed || job.Error != "media not found" {
		t.Fatalf("job = %+v, want failed with media not found", job)
	}
	if len(store.products) != 0 {
		t.Fatal("no product may be created for a failed claim")
	}
	if analyzer.callCount() != 0 {
		t.Fatal("analyzer must not be called without media")
	}
}

func TestRunAnalyzerFailureNeverLeavesProcessing(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	analyzer := &stubAnalyzer{err: errors.New("analyze: service returned 502: model exploded")}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job := store.jobs["j-1"]
	if job.Status != domain.JobFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if job.Error == "" {
		t.Fatal("failure cause must be recorded")
	}
	events := jobEvents(store, "j-1")
	if len(events) != 2 || events[1] != "ai_failed" {
		t.Fatalf("ledger events = %v", events)
	}
}

func TestRunIsIdempotentAfterTerminal(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	historyLen := len(store.history)
	productCount := len(store.products)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if analyzer.callCount() != 1 {
		t.Fatalf("analyzer calls = %d, want 1", analyzer.callCount())
	}
	if len(store.products) != productCount {
		t.Fatalf("products = %d, want %d", len(store.products), productCount)
	}
	if len(store.history) != historyLen {
		t.Fatalf("history rows = %d, want %d", len(store.history), historyLen)
	}
}

func TestRunSkipsJobClaimedElsewhere(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	job := store.jobs["j-1"]
	if err := job.MarkProcessing(time.Now()); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	store.jobs["j-1"] = job

	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)
	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Fatal("analyzer must not run for a job claimed by another worker")
	}
	if len(store.history) != 0 || len(store.products) != 0 {
		t.Fatal("no writes may happen for a job claimed by another worker")
	}
}

func TestRunCommitFailureMarksJobFailed(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	store.failNextProductCommit = true
	analyzer := &stubAnalyzer{result: redJacketResult()}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job := store.jobs["j-1"]
	if job.Status != domain.JobFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if job.Error == "" {
		t.Fatal("commit failure cause must be recorded")
	}
	if len(store.products) != 0 {
		t.Fatal("rolled back product must not be visible")
	}
}

func TestRunRetryAfterFailure(t *testing.T) {
	store := newMemStore()
	seedJob(store)
	analyzer := &stubAnalyzer{err: errors.New("timeout")}
	orch := testOrchestrator(store, analyzer)

	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job := store.jobs["j-1"]
	if err := job.ResetForRetry(time.Now()); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	store.jobs["j-1"] = job

	analyzer.err = nil
	analyzer.result = redJacketResult()
	if err := orch.Run(context.Background(), "j-1"); err != nil {
		t.Fatalf("retried Run: %v", err)
	}
	if store.jobs["j-1"].Status != domain.JobDone {
		t.Fatalf("job status = %q, want done after retry", store.jobs["j-1"].Status)
	}
	if len(store.products) != 1 {
		t.Fatalf("products = %d, want 1", len(store.products))
	}
}
