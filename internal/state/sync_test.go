package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"organizer/api/internal/organizer"
)

func TestReconcileCreatesRemoteWhenAbsent(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestManager(t, gw, time.Hour)
	m.PerformAction("Add todo", addTodoAction("Buy milk"))

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	gw.mu.Lock()
	creates := gw.creates
	gw.mu.Unlock()
	if creates != 1 {
		t.Fatalf("creates = %d, want 1", creates)
	}

	// Future saves reuse the discovered id instead of creating again.
	m.PerformAction("Add todo", addTodoAction("Eggs"))
	m.Flush(context.Background())
	gw.mu.Lock()
	creates, writes := gw.creates, gw.writes
	gw.mu.Unlock()
	if creates != 1 || writes != 1 {
		t.Fatalf("creates = %d writes = %d, want 1/1", creates, writes)
	}
}

func TestReconcilePullsWhenRemoteNewer(t *testing.T) {
	gw := newFakeGateway()

	remoteDoc := organizer.Default()
	remoteDoc.Todos = []organizer.TodoItem{{ID: "t9", Task: "From cloud"}}
	stamp := time.Now().UTC()
	remoteDoc.LastModified = &stamp
	gw.seed(t, "u1", remoteDoc, stamp)

	m, local := newTestManager(t, gw, time.Hour)
	// Local document has no lastModified, which counts as epoch zero.
	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	doc := m.Document()
	if len(doc.Todos) != 1 || doc.Todos[0].Task != "From cloud" {
		t.Fatalf("remote document not pulled: %+v", doc.Todos)
	}
	local.mu.Lock()
	persisted := local.docs["u1"]
	local.mu.Unlock()
	if len(persisted.Todos) != 1 {
		t.Fatal("pulled document must be persisted locally")
	}
}

func TestReconcilePushesWhenLocalNewerOrEqual(t *testing.T) {
	gw := newFakeGateway()

	oldStamp := time.Now().Add(-time.Hour).UTC()
	remoteDoc := organizer.Default()
	remoteDoc.LastModified = &oldStamp
	id := gw.seed(t, "u1", remoteDoc, oldStamp)

	local := newFakeLocal()
	localDoc := organizer.Default()
	localDoc.Todos = []organizer.TodoItem{{ID: "t1", Task: "Local edit"}}
	newStamp := time.Now().UTC()
	localDoc.LastModified = &newStamp
	local.docs["u1"] = localDoc

	m, err := New(context.Background(), Config{UserID: "u1", Local: local, Gateway: gw, Debounce: time.Hour})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	raw, err := gw.ReadDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("read remote: %v", err)
	}
	pushed, err := organizer.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pushed.Todos) != 1 || pushed.Todos[0].Task != "Local edit" {
		t.Fatalf("local document not pushed: %+v", pushed.Todos)
	}
	gw.mu.Lock()
	creates := gw.creates
	gw.mu.Unlock()
	if creates != 0 {
		t.Fatal("push must reuse the discovered id, not create a new document")
	}
}

func TestReconcileRunsOnce(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestManager(t, gw, time.Hour)

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	gw.mu.Lock()
	finds := gw.finds
	gw.mu.Unlock()
	if finds != 1 {
		t.Fatalf("find calls = %d, want 1 (second credential event must not re-run)", finds)
	}
}

func TestForceSyncResetsGuard(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestManager(t, gw, time.Hour)

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if err := m.ForceSync(context.Background()); err != nil {
		t.Fatalf("force sync: %v", err)
	}

	gw.mu.Lock()
	finds := gw.finds
	gw.mu.Unlock()
	if finds != 2 {
		t.Fatalf("find calls = %d, want 2", finds)
	}
}

func TestReconcileErrorAllowsRetry(t *testing.T) {
	gw := newFakeGateway()
	gw.findErr = errors.New("remote unavailable")
	m, _ := newTestManager(t, gw, time.Hour)

	if err := m.Reconcile(context.Background()); err == nil {
		t.Fatal("expected reconcile error")
	}

	gw.mu.Lock()
	gw.findErr = nil
	gw.mu.Unlock()

	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	gw.mu.Lock()
	finds := gw.finds
	gw.mu.Unlock()
	if finds != 2 {
		t.Fatalf("find calls = %d, want 2", finds)
	}
}

func TestReconcileWithoutGatewayIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile without gateway: %v", err)
	}
}
