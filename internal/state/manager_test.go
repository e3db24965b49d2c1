package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"organizer/api/internal/organizer"
	"organizer/api/internal/remote"
)

type fakeLocal struct {
	mu      sync.Mutex
	docs    map[string]organizer.AppData
	loadErr error
	saveErr error
	saves   int
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{docs: make(map[string]organizer.AppData)}
}

func (f *fakeLocal) Load(_ context.Context, userID string) (organizer.AppData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return organizer.AppData{}, f.loadErr
	}
	if d, ok := f.docs[userID]; ok {
		return d, nil
	}
	return organizer.Default(), nil
}

func (f *fakeLocal) Save(_ context.Context, userID string, d organizer.AppData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.docs[userID] = d
	f.saves++
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	findErr  error
	writeErr error
	finds    int
	creates  int
	writes   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: make(map[string][]byte), modified: make(map[string]time.Time)}
}

func (f *fakeGateway) FindDocument(_ context.Context, userID string) (*remote.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	id := "documents/" + userID + ".json"
	if _, ok := f.objects[id]; !ok {
		return nil, nil
	}
	return &remote.FileInfo{ID: id, ModifiedTime: f.modified[id]}, nil
}

func (f *fakeGateway) CreateDocument(_ context.Context, userID string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return "", f.writeErr
	}
	id := "documents/" + userID + ".json"
	f.objects[id] = data
	f.modified[id] = time.Now()
	f.creates++
	return id, nil
}

func (f *fakeGateway) ReadDocument(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeGateway) WriteDocument(_ context.Context, id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.objects[id] = data
	f.modified[id] = time.Now()
	f.writes++
	return nil
}

func (f *fakeGateway) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.writes
}

func (f *fakeGateway) seed(t *testing.T, userID string, d organizer.AppData, modified time.Time) string {
	t.Helper()
	raw, err := organizer.Encode(d)
	if err != nil {
		t.Fatalf("encode seed: %v", err)
	}
	id := "documents/" + userID + ".json"
	f.mu.Lock()
	f.objects[id] = raw
	f.modified[id] = modified
	f.mu.Unlock()
	return id
}

func newTestManager(t *testing.T, gw remote.Gateway, debounce time.Duration) (*Manager, *fakeLocal) {
	t.Helper()
	local := newFakeLocal()
	m, err := New(context.Background(), Config{
		UserID:   "u1",
		Local:    local,
		Gateway:  gw,
		Debounce: debounce,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, local
}

func addTodoAction(task string) func(organizer.AppData) organizer.AppData {
	return func(d organizer.AppData) organizer.AppData {
		return organizer.InsertTodo(d, organizer.TodoItem{ID: "todo_" + task, Task: task})
	}
}

func TestPerformActionSnapshotsPreState(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)

	before := m.Document()
	m.PerformAction("Add todo", addTodoAction("Buy milk"))

	after := m.Document()
	if len(after.Todos) != 1 || after.Todos[0].Task != "Buy milk" {
		t.Fatalf("transform not applied: %+v", after.Todos)
	}

	m.mu.Lock()
	entry := m.history[len(m.history)-1]
	m.mu.Unlock()
	if entry.Message != "Add todo" {
		t.Fatalf("history message = %q", entry.Message)
	}
	if len(entry.Snapshot.Todos) != len(before.Todos) {
		t.Fatal("history snapshot must be the pre-mutation state")
	}
	if !m.Dirty() {
		t.Fatal("mutation must mark the document dirty")
	}
}

func TestHistoryBoundedToLimit(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)

	for i := 0; i < 35; i++ {
		i := i
		m.PerformAction("mutation", func(d organizer.AppData) organizer.AppData {
			d.TodoSortOrder = organizer.SortOrderDefault
			d.DefaultCalendarID = string(rune('a' + i%26))
			return d
		})
	}

	if got := len(m.History()); got != DefaultHistoryLimit {
		t.Fatalf("history length = %d, want %d", got, DefaultHistoryLimit)
	}

	// 30 undos walk back exactly 30 mutations, no further.
	undone := 0
	for m.UndoLastAction() != nil {
		undone++
	}
	if undone != DefaultHistoryLimit {
		t.Fatalf("undone %d actions, want %d", undone, DefaultHistoryLimit)
	}
	// The document is now the state after mutation 5 (35 - 30), whose
	// calendar id was written by iteration index 4.
	if got := m.Document().DefaultCalendarID; got != string(rune('a'+4)) {
		t.Fatalf("restored calendar id = %q, want %q", got, string(rune('a'+4)))
	}
}

func TestUndoEmptyHistoryIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	if res := m.UndoLastAction(); res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
}

func TestUndoRestoresToggle(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add todo", addTodoAction("Buy milk"))
	historyBefore := len(m.History())

	m.PerformAction("Toggle todo", func(d organizer.AppData) organizer.AppData {
		return organizer.UpdateTodo(d, "todo_Buy milk", func(td organizer.TodoItem) organizer.TodoItem {
			td.Completed = !td.Completed
			return td
		})
	})

	res := m.UndoLastAction()
	if res == nil {
		t.Fatal("expected undo result")
	}
	todo, _ := organizer.FindTodo(m.Document(), "todo_Buy milk")
	if todo.Completed {
		t.Fatal("undo must restore the incomplete todo")
	}
	if got := len(m.History()); got != historyBefore {
		t.Fatalf("history length = %d, want %d (exactly one entry consumed)", got, historyBefore)
	}
}

func TestRevertDiscardsTargetAndEverythingAfter(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)

	for _, task := range []string{"one", "two", "three", "four"} {
		m.PerformAction("Add "+task, addTodoAction(task))
	}
	items := m.History()
	if len(items) != 4 {
		t.Fatalf("history length = %d", len(items))
	}

	res := m.RevertToState(items[1].ID)
	if res == nil {
		t.Fatal("expected revert result")
	}

	// The restored document is the snapshot taken before action two, and
	// h2..h4 are all discarded.
	if got := len(m.Document().Todos); got != 1 {
		t.Fatalf("document has %d todos, want 1", got)
	}
	remaining := m.History()
	if len(remaining) != 1 || remaining[0].ID != items[0].ID {
		t.Fatalf("history after revert = %+v, want only the first entry", remaining)
	}
}

func TestRevertUnknownIDReturnsNil(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add todo", addTodoAction("x"))
	if res := m.RevertToState(99999999); res != nil {
		t.Fatalf("expected nil for unknown id, got %+v", res)
	}
	if len(m.Document().Todos) != 1 {
		t.Fatal("document must be untouched after failed revert")
	}
}

func TestDebounceCoalescesMutations(t *testing.T) {
	gw := newFakeGateway()
	m, _ := newTestManager(t, gw, 40*time.Millisecond)

	for _, task := range []string{"a", "b", "c", "d", "e"} {
		m.PerformAction("Add "+task, addTodoAction(task))
	}

	time.Sleep(400 * time.Millisecond)

	if calls := gw.remoteCalls(); calls != 1 {
		t.Fatalf("remote calls = %d, want exactly 1", calls)
	}
	raw, err := gw.ReadDocument(context.Background(), "documents/u1.json")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	doc, err := organizer.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Todos) != 5 {
		t.Fatalf("remote document has %d todos, want the final state with 5", len(doc.Todos))
	}
}

func TestFlushCancelsDebounceAndSavesNow(t *testing.T) {
	gw := newFakeGateway()
	m, local := newTestManager(t, gw, time.Hour)

	m.PerformAction("Add todo", addTodoAction("Buy milk"))
	m.Flush(context.Background())

	if calls := gw.remoteCalls(); calls != 1 {
		t.Fatalf("remote calls = %d, want 1", calls)
	}
	if m.Dirty() {
		t.Fatal("flush must clear the dirty flag on success")
	}
	if m.Document().LastModified == nil {
		t.Fatal("successful remote save must stamp lastModified")
	}
	local.mu.Lock()
	persisted := local.docs["u1"]
	local.mu.Unlock()
	if persisted.LastModified == nil {
		t.Fatal("stamped lastModified must reach the local store")
	}
}

func TestFailedRemoteWriteLeavesDirtyForNextCycle(t *testing.T) {
	gw := newFakeGateway()
	gw.writeErr = errors.New("network down")
	m, _ := newTestManager(t, gw, time.Hour)

	m.PerformAction("Add todo", addTodoAction("Buy milk"))
	m.Flush(context.Background())

	if !m.Dirty() {
		t.Fatal("failed remote write must leave the document dirty")
	}

	gw.mu.Lock()
	gw.writeErr = nil
	gw.mu.Unlock()

	m.Flush(context.Background())
	if m.Dirty() {
		t.Fatal("retry cycle must clear the dirty flag")
	}
	if calls := gw.remoteCalls(); calls != 1 {
		t.Fatalf("remote calls = %d, want 1 successful", calls)
	}
}

func TestReplaceDocumentStampsLastModified(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)

	imported := organizer.Default()
	imported.Todos = []organizer.TodoItem{{ID: "t1", Task: "Imported"}}
	m.ReplaceDocument("Imported data", imported)

	doc := m.Document()
	if len(doc.Todos) != 1 || doc.Todos[0].Task != "Imported" {
		t.Fatalf("document not replaced: %+v", doc.Todos)
	}
	if doc.LastModified == nil {
		t.Fatal("import must stamp a fresh lastModified")
	}
}

func TestOnRemoteSavedHook(t *testing.T) {
	gw := newFakeGateway()
	local := newFakeLocal()
	var hookCalls int
	var hookMu sync.Mutex
	m, err := New(context.Background(), Config{
		UserID:   "u1",
		Local:    local,
		Gateway:  gw,
		Debounce: time.Hour,
		OnRemoteSaved: func(d organizer.AppData) {
			hookMu.Lock()
			hookCalls++
			hookMu.Unlock()
			if d.LastModified == nil {
				t.Error("hook must receive the stamped document")
			}
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	m.PerformAction("Add todo", addTodoAction("x"))
	m.Flush(context.Background())

	hookMu.Lock()
	defer hookMu.Unlock()
	if hookCalls != 1 {
		t.Fatalf("hook calls = %d, want 1", hookCalls)
	}
}
