package state

import (
	"fmt"
	"strings"
	"time"

	"organizer/api/internal/fuzzy"
	"organizer/api/internal/organizer"
	"organizer/api/internal/util"
)

// duplicateThreshold is stricter than the general lookup tolerance: batch
// inserts must not silently create near-duplicates.
const duplicateThreshold = 0.4

// TargetKind names the collection a queued item is destined for.
type TargetKind string

const (
	KindTodo     TargetKind = "todo"
	KindShopping TargetKind = "shopping"
	KindNote     TargetKind = "note"
	KindCustom   TargetKind = "custom"
)

// QueuedItem is one prospective addition from the AI layer, a photo import
// or a batch paste. Exactly one payload field is set, matching Kind.
type QueuedItem struct {
	Kind      TargetKind       `json:"kind"`
	ListID    string           `json:"listId,omitempty"`
	ProjectID string           `json:"projectId,omitempty"`
	Todo      *TodoContent     `json:"todo,omitempty"`
	Shopping  *ShoppingContent `json:"shopping,omitempty"`
	Note      *NoteContent     `json:"note,omitempty"`
	Custom    *CustomContent   `json:"custom,omitempty"`
}

type TodoContent struct {
	Task     string             `json:"task"`
	Priority organizer.Priority `json:"priority,omitempty"`
	DueDate  *time.Time         `json:"dueDate,omitempty"`
}

type ShoppingContent struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity,omitempty"`
	Store    string `json:"store,omitempty"`
}

type NoteContent struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

type CustomContent struct {
	Text string `json:"text"`
}

// Text returns the primary free-text field for duplicate checking.
func (q QueuedItem) Text() string {
	switch q.Kind {
	case KindTodo:
		if q.Todo != nil {
			return q.Todo.Task
		}
	case KindShopping:
		if q.Shopping != nil {
			return q.Shopping.Item
		}
	case KindNote:
		if q.Note != nil {
			return q.Note.Title
		}
	case KindCustom:
		if q.Custom != nil {
			return q.Custom.Text
		}
	}
	return ""
}

// ExistingMatch describes the near-duplicate that paused the queue.
type ExistingMatch struct {
	ID     string     `json:"id"`
	Kind   TargetKind `json:"kind"`
	ListID string     `json:"listId,omitempty"`
	Text   string     `json:"text"`
}

// DuplicateConfirmation is the paused batch-insert state: the flagged item,
// its near-duplicate, and everything still waiting behind it.
type DuplicateConfirmation struct {
	NewItem          QueuedItem    `json:"newItem"`
	Existing         ExistingMatch `json:"existing"`
	UnprocessedQueue []QueuedItem  `json:"unprocessedQueue"`
}

// QueueResult reports one ProcessAdditionQueue pass: the success message per
// inserted item, and the pending confirmation if the walk stopped.
type QueueResult struct {
	Messages []string               `json:"messages"`
	Pending  *DuplicateConfirmation `json:"pending,omitempty"`
}

// ProcessAdditionQueue walks the queue head to tail. Each item is checked
// for a near-duplicate in its target collection unless it is the first item
// and forceFirst is set; notes are never duplicate-checked. On the first
// collision the walk stops: everything inserted so far commits as a single
// action, and the flagged item plus the remainder wait for a user decision.
// The engine deliberately does not look ahead past the first collision.
func (m *Manager) ProcessAdditionQueue(queue []QueuedItem, forceFirst bool) QueueResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processQueueLocked(queue, forceFirst)
}

func (m *Manager) processQueueLocked(queue []QueuedItem, forceFirst bool) QueueResult {
	work := m.doc
	var inserts []func(organizer.AppData) organizer.AppData
	var messages []string

	commit := func() {
		if len(inserts) == 0 {
			return
		}
		staged := inserts
		_, _ = m.performLocked(strings.Join(messages, "; "), func(d organizer.AppData) (organizer.AppData, error) {
			for _, apply := range staged {
				d = apply(d)
			}
			return d, nil
		})
	}

	for i, item := range queue {
		skipCheck := (i == 0 && forceFirst) || item.Kind == KindNote
		if !skipCheck {
			if match := findDuplicate(work, item); match != nil {
				commit()
				m.pendingDup = &DuplicateConfirmation{
					NewItem:          item,
					Existing:         *match,
					UnprocessedQueue: append([]QueuedItem(nil), queue[i+1:]...),
				}
				return QueueResult{Messages: messages, Pending: m.pendingDup}
			}
		}

		apply, message := buildInsert(item)
		if apply == nil {
			continue
		}
		work = apply(work)
		inserts = append(inserts, apply)
		messages = append(messages, message)
	}

	commit()
	return QueueResult{Messages: messages}
}

// ConfirmDuplicateAdd forces the flagged item through and resumes duplicate
// checking for the rest of the queue, so a second collision later in the
// same batch pauses again.
func (m *Manager) ConfirmDuplicateAdd() QueueResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pendingDup
	if pending == nil {
		return QueueResult{}
	}
	m.pendingDup = nil
	queue := append([]QueuedItem{pending.NewItem}, pending.UnprocessedQueue...)
	return m.processQueueLocked(queue, true)
}

// SkipDuplicateAndContinue discards the flagged item and resumes processing
// the remainder with duplicate checking re-enabled from its head.
func (m *Manager) SkipDuplicateAndContinue() QueueResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pendingDup
	if pending == nil {
		return QueueResult{}
	}
	m.pendingDup = nil
	return m.processQueueLocked(pending.UnprocessedQueue, false)
}

// ClearDuplicateConfirmation abandons the pending confirmation and the rest
// of the queue entirely.
func (m *Manager) ClearDuplicateConfirmation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingDup = nil
}

// PendingDuplicate returns the paused confirmation, if any.
func (m *Manager) PendingDuplicate() *DuplicateConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingDup == nil {
		return nil
	}
	copied := *m.pendingDup
	return &copied
}

func findDuplicate(d organizer.AppData, item QueuedItem) *ExistingMatch {
	var candidates []fuzzy.Candidate
	switch item.Kind {
	case KindTodo:
		for _, t := range d.Todos {
			candidates = append(candidates, fuzzy.Candidate{ID: t.ID, Text: t.Task})
		}
	case KindShopping:
		for _, s := range d.ShoppingList {
			candidates = append(candidates, fuzzy.Candidate{ID: s.ID, Text: s.Item})
		}
	case KindCustom:
		if list, ok := organizer.FindCustomList(d, item.ListID); ok {
			for _, g := range list.Items {
				candidates = append(candidates, fuzzy.Candidate{ID: g.ID, Text: g.Text})
			}
		}
	default:
		return nil
	}

	match := fuzzy.FindBestMatch(candidates, item.Text(), duplicateThreshold)
	if match == nil {
		return nil
	}
	return &ExistingMatch{ID: match.ID, Kind: item.Kind, ListID: item.ListID, Text: match.Text}
}

// buildInsert turns a queued item into a concrete insert transform with a
// freshly generated id, plus its success message.
func buildInsert(item QueuedItem) (func(organizer.AppData) organizer.AppData, string) {
	switch item.Kind {
	case KindTodo:
		if item.Todo == nil {
			return nil, ""
		}
		todo := organizer.TodoItem{
			ID:        util.NewID("todo"),
			Task:      item.Todo.Task,
			Priority:  item.Todo.Priority,
			DueDate:   item.Todo.DueDate,
			ProjectID: item.ProjectID,
		}
		if todo.Priority == "" {
			todo.Priority = organizer.PriorityMedium
		}
		return func(d organizer.AppData) organizer.AppData {
			return organizer.InsertTodo(d, todo)
		}, fmt.Sprintf("Added todo %q", todo.Task)
	case KindShopping:
		if item.Shopping == nil {
			return nil, ""
		}
		shopping := organizer.ShoppingItem{
			ID:        util.NewID("shop"),
			Item:      item.Shopping.Item,
			Quantity:  item.Shopping.Quantity,
			Store:     item.Shopping.Store,
			ProjectID: item.ProjectID,
		}
		return func(d organizer.AppData) organizer.AppData {
			return organizer.InsertShoppingItem(d, shopping)
		}, fmt.Sprintf("Added shopping item %q", shopping.Item)
	case KindNote:
		if item.Note == nil {
			return nil, ""
		}
		note := organizer.NoteItem{
			ID:        util.NewID("note"),
			Title:     item.Note.Title,
			Content:   item.Note.Content,
			History:   []organizer.NoteRevision{},
			ProjectID: item.ProjectID,
		}
		return func(d organizer.AppData) organizer.AppData {
			return organizer.InsertNote(d, note)
		}, fmt.Sprintf("Added note %q", note.Title)
	case KindCustom:
		if item.Custom == nil {
			return nil, ""
		}
		listID := item.ListID
		generic := organizer.GenericItem{
			ID:        util.NewID("item"),
			Text:      item.Custom.Text,
			ProjectID: item.ProjectID,
		}
		return func(d organizer.AppData) organizer.AppData {
			return organizer.InsertCustomItem(d, listID, generic)
		}, fmt.Sprintf("Added %q", generic.Text)
	}
	return nil, ""
}
