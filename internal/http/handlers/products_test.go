package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/middleware"
	"wardrobe/internal/queue"
	"wardrobe/internal/state"
)

// stubDB serves one product row and records every statement it executes.
type stubDB struct {
	mu    sync.Mutex
	state string
	owner string
	execs []string
}

func newStubDB(productState, ownerID string) *stubDB {
	return &stubDB{state: productState, owner: ownerID}
}

func (db *stubDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "FROM products") {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*string) = "p-1"
			*dest[1].(*string) = db.owner
			*dest[2].(*string) = db.state
			*dest[3].(*string) = "Red Jacket"
			*dest[4].(*string) = ""
			*dest[5].(*string) = ""
			*dest[6].(*[]byte) = []byte(`{}`)
			*dest[7].(*[]byte) = []byte(`[]`)
			*dest[8].(*time.Time) = now
			*dest[9].(*time.Time) = now
			return nil
		})
	}
	return NewSimpleRow(nil)
}

func (db *stubDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	db.execs = append(db.execs, sql)
	db.mu.Unlock()
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (db *stubDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (db *stubDB) Begin(_ context.Context) (pgx.Tx, error) {
	return &stubTx{db: db}, nil
}

func (db *stubDB) execCount(fragment string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, sql := range db.execs {
		if strings.Contains(sql, fragment) {
			n++
		}
	}
	return n
}

type stubTx struct {
	pgx.Tx
	db *stubDB
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *stubTx) Commit(_ context.Context) error   { return nil }
func (t *stubTx) Rollback(_ context.Context) error { return nil }

type stubDispatcher struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (d *stubDispatcher) Dispatch(_ context.Context, task queue.Task) (string, error) {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
	return "dispatch-1", nil
}

func testApp(db *stubDB, dispatcher *stubDispatcher) *App {
	return &App{
		Logger: zerolog.Nop(),
		Store:  repo.NewStore(db),
		Queue:  dispatcher,
		States: state.NewService(),
	}
}

func eventRequest(userID, productID, event string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/products/"+productID+"/events/"+event, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", productID)
	rctx.URLParams.Add("event", event)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.ContextWithUserID(ctx, userID)
	return req.WithContext(ctx)
}

func TestProductsApplyEvent(t *testing.T) {
	db := newStubDB("draft", "user-1")
	dispatcher := &stubDispatcher{}
	app := testApp(db, dispatcher)

	rr := httptest.NewRecorder()
	app.ProductsApplyEvent(rr, eventRequest("user-1", "p-1", "upload_media"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp productDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != "uploading_media" {
		t.Fatalf("state = %q, want uploading_media", resp.State)
	}
	if n := db.execCount("INSERT INTO state_history"); n != 1 {
		t.Fatalf("history inserts = %d, want 1", n)
	}
	if n := db.execCount("UPDATE products"); n != 1 {
		t.Fatalf("product updates = %d, want 1", n)
	}
	if len(dispatcher.tasks) != 1 || dispatcher.tasks[0].Kind != queue.KindIndexProduct {
		t.Fatalf("dispatched tasks = %v", dispatcher.tasks)
	}
}

func TestProductsApplyEventRejected(t *testing.T) {
	db := newStubDB("published", "user-1")
	dispatcher := &stubDispatcher{}
	app := testApp(db, dispatcher)

	rr := httptest.NewRecorder()
	app.ProductsApplyEvent(rr, eventRequest("user-1", "p-1", "start_ai"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Error         string   `json:"error"`
		AllowedEvents []string `json:"allowed_events"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "invalid_transition" {
		t.Fatalf("error = %q, want invalid_transition", resp.Error)
	}
	if len(resp.AllowedEvents) != 1 || resp.AllowedEvents[0] != "archive" {
		t.Fatalf("allowed_events = %v, want [archive]", resp.AllowedEvents)
	}
	if n := db.execCount("INSERT INTO state_history"); n != 0 {
		t.Fatalf("history inserts = %d, want 0", n)
	}
	if n := db.execCount("UPDATE products"); n != 0 {
		t.Fatalf("product updates = %d, want 0", n)
	}
	if len(dispatcher.tasks) != 0 {
		t.Fatalf("dispatched tasks = %v, want none", dispatcher.tasks)
	}
}

func TestProductsApplyEventForeignProduct(t *testing.T) {
	db := newStubDB("draft", "someone-else")
	app := testApp(db, &stubDispatcher{})

	rr := httptest.NewRecorder()
	app.ProductsApplyEvent(rr, eventRequest("user-1", "p-1", "upload_media"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestProductsApplyEventCorruptState(t *testing.T) {
	db := newStubDB("limbo", "user-1")
	app := testApp(db, &stubDispatcher{})

	rr := httptest.NewRecorder()
	app.ProductsApplyEvent(rr, eventRequest("user-1", "p-1", "upload_media"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}
