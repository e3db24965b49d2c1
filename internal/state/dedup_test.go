package state

import (
	"testing"
	"time"

	"organizer/api/internal/organizer"
)

func queuedTodo(task string) QueuedItem {
	return QueuedItem{Kind: KindTodo, Todo: &TodoContent{Task: task}}
}

func TestProcessQueueInsertsWhenNoCollisions(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)

	res := m.ProcessAdditionQueue([]QueuedItem{queuedTodo("Buy milk"), queuedTodo("Call plumber")}, false)
	if res.Pending != nil {
		t.Fatalf("unexpected pause: %+v", res.Pending)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("messages = %v, want 2", res.Messages)
	}
	if got := len(m.Document().Todos); got != 2 {
		t.Fatalf("todo count = %d, want 2", got)
	}
	// One batch, one history entry.
	if got := len(m.History()); got != 1 {
		t.Fatalf("history length = %d, want 1 combined entry", got)
	}
}

func TestProcessQueuePausesAtFirstCollision(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add todo", addTodoAction("Buy milk"))

	queue := []QueuedItem{
		queuedTodo("Water plants"), // A: clean
		queuedTodo("buy milk"),     // B: collides
		queuedTodo("Read book"),    // C: never reached in this pass
	}
	res := m.ProcessAdditionQueue(queue, false)

	if len(res.Messages) != 1 {
		t.Fatalf("messages = %v, want only A's", res.Messages)
	}
	if res.Pending == nil {
		t.Fatal("expected a pending confirmation")
	}
	if res.Pending.NewItem.Text() != "buy milk" {
		t.Fatalf("flagged item = %q", res.Pending.NewItem.Text())
	}
	if res.Pending.Existing.Text != "Buy milk" {
		t.Fatalf("existing match = %q", res.Pending.Existing.Text)
	}
	if len(res.Pending.UnprocessedQueue) != 1 || res.Pending.UnprocessedQueue[0].Text() != "Read book" {
		t.Fatalf("unprocessed queue = %+v", res.Pending.UnprocessedQueue)
	}

	doc := m.Document()
	if got := len(doc.Todos); got != 2 {
		t.Fatalf("todo count = %d, want 2 (original + A)", got)
	}
}

func TestSkipDuplicateAndContinue(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add todo", addTodoAction("Buy milk"))

	first := m.ProcessAdditionQueue([]QueuedItem{
		queuedTodo("Water plants"),
		queuedTodo("buy milk"),
		queuedTodo("Read book"),
	}, false)
	if first.Pending == nil {
		t.Fatal("expected pause")
	}

	second := m.SkipDuplicateAndContinue()
	if second.Pending != nil {
		t.Fatalf("unexpected second pause: %+v", second.Pending)
	}
	if len(second.Messages) != 1 {
		t.Fatalf("resume messages = %v, want only C's", second.Messages)
	}

	doc := m.Document()
	if got := len(doc.Todos); got != 3 {
		t.Fatalf("todo count = %d, want 3 (B never inserted)", got)
	}
	for _, todo := range doc.Todos {
		if todo.Task == "buy milk" {
			t.Fatal("skipped duplicate must not be inserted")
		}
	}
	if m.PendingDuplicate() != nil {
		t.Fatal("pending confirmation must be cleared")
	}
}

func TestConfirmDuplicateAddForcesOnlyFlaggedItem(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add shopping", func(d organizer.AppData) organizer.AppData {
		d = organizer.InsertShoppingItem(d, organizer.ShoppingItem{ID: "s1", Item: "Milk"})
		return organizer.InsertShoppingItem(d, organizer.ShoppingItem{ID: "s2", Item: "Bread"})
	})

	queue := []QueuedItem{
		{Kind: KindShopping, Shopping: &ShoppingContent{Item: "milk"}},
		{Kind: KindShopping, Shopping: &ShoppingContent{Item: "bread"}},
	}
	first := m.ProcessAdditionQueue(queue, false)
	if first.Pending == nil || first.Pending.NewItem.Text() != "milk" {
		t.Fatalf("expected pause on milk, got %+v", first.Pending)
	}

	// Add-anyway forces milk through, then bread collides and pauses again.
	second := m.ConfirmDuplicateAdd()
	if len(second.Messages) != 1 {
		t.Fatalf("messages = %v, want milk's insert", second.Messages)
	}
	if second.Pending == nil || second.Pending.NewItem.Text() != "bread" {
		t.Fatalf("expected second pause on bread, got %+v", second.Pending)
	}
}

func TestClearDuplicateConfirmationDropsQueue(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add todo", addTodoAction("Buy milk"))

	res := m.ProcessAdditionQueue([]QueuedItem{queuedTodo("buy milk"), queuedTodo("Read book")}, false)
	if res.Pending == nil {
		t.Fatal("expected pause")
	}

	m.ClearDuplicateConfirmation()
	if m.PendingDuplicate() != nil {
		t.Fatal("pending confirmation must be cleared")
	}
	if got := len(m.Document().Todos); got != 1 {
		t.Fatalf("todo count = %d, want 1 (remainder silently dropped)", got)
	}
}

func TestNotesBypassDuplicateCheck(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add note", func(d organizer.AppData) organizer.AppData {
		return organizer.InsertNote(d, organizer.NoteItem{ID: "n1", Title: "Meeting notes", History: []organizer.NoteRevision{}})
	})

	res := m.ProcessAdditionQueue([]QueuedItem{
		{Kind: KindNote, Note: &NoteContent{Title: "Meeting notes"}},
	}, false)
	if res.Pending != nil {
		t.Fatal("notes must never pause the queue")
	}
	if got := len(m.Document().Notes); got != 2 {
		t.Fatalf("note count = %d, want 2", got)
	}
}

func TestCustomListQueueChecksOnlyTargetList(t *testing.T) {
	m, _ := newTestManager(t, nil, time.Hour)
	m.PerformAction("Add lists", func(d organizer.AppData) organizer.AppData {
		d = organizer.InsertCustomList(d, organizer.CustomList{ID: "c1", Title: "Books", Items: []organizer.GenericItem{{ID: "g1", Text: "Dune"}}})
		return organizer.InsertCustomList(d, organizer.CustomList{ID: "c2", Title: "Films", Items: []organizer.GenericItem{}})
	})

	// Same text, different list: no collision.
	res := m.ProcessAdditionQueue([]QueuedItem{
		{Kind: KindCustom, ListID: "c2", Custom: &CustomContent{Text: "Dune"}},
	}, false)
	if res.Pending != nil {
		t.Fatal("collision must be scoped to the target list")
	}

	// Same list: collision.
	res = m.ProcessAdditionQueue([]QueuedItem{
		{Kind: KindCustom, ListID: "c1", Custom: &CustomContent{Text: "dune"}},
	}, false)
	if res.Pending == nil {
		t.Fatal("expected collision in the same list")
	}
}
