package state

import (
	"fmt"
	"strings"
	"time"

	"organizer/api/internal/organizer"
	"organizer/api/internal/util"
)

// SelectionType scopes a bulk selection to one collection.
type SelectionType string

const (
	SelectTodos    SelectionType = "todos"
	SelectShopping SelectionType = "shopping"
	SelectNotes    SelectionType = "notes"
	SelectCustom   SelectionType = "custom"
)

type selectionState struct {
	active bool
	typ    SelectionType
	listID string
	ids    map[string]struct{}
}

// SelectionSnapshot is the outward-facing view of the selection state.
type SelectionSnapshot struct {
	Active      bool          `json:"active"`
	Type        SelectionType `json:"type,omitempty"`
	ListID      string        `json:"listId,omitempty"`
	SelectedIDs []string      `json:"selectedIds"`
}

// StartSelectionMode activates selection for one scope, silently clearing
// any prior selection. At most one scope is active at a time.
func (m *Manager) StartSelectionMode(typ SelectionType, listID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = selectionState{active: true, typ: typ, listID: listID, ids: make(map[string]struct{})}
}

// ToggleItemSelected adds or removes an id from the selected set. No-op when
// selection mode is inactive.
func (m *Manager) ToggleItemSelected(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.selection.active {
		return
	}
	if _, ok := m.selection.ids[id]; ok {
		delete(m.selection.ids, id)
	} else {
		m.selection.ids[id] = struct{}{}
	}
}

// SelectAllInList selects every id currently in the scoped collection.
func (m *Manager) SelectAllInList() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.selection.active {
		return
	}
	for _, id := range m.scopedIDsLocked() {
		m.selection.ids[id] = struct{}{}
	}
}

// EndSelectionMode deactivates selection and clears the selected set.
func (m *Manager) EndSelectionMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = selectionState{}
}

// Selection returns the current selection state.
func (m *Manager) Selection() SelectionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SelectionSnapshot{
		Active:      m.selection.active,
		Type:        m.selection.typ,
		ListID:      m.selection.listID,
		SelectedIDs: m.selectedInOrderLocked(),
	}
}

// scopedIDsLocked lists every id in the scoped collection, in display order.
func (m *Manager) scopedIDsLocked() []string {
	var ids []string
	switch m.selection.typ {
	case SelectTodos:
		for _, t := range m.doc.Todos {
			ids = append(ids, t.ID)
		}
	case SelectShopping:
		for _, s := range m.doc.ShoppingList {
			ids = append(ids, s.ID)
		}
	case SelectNotes:
		for _, n := range m.doc.Notes {
			ids = append(ids, n.ID)
		}
	case SelectCustom:
		if list, ok := organizer.FindCustomList(m.doc, m.selection.listID); ok {
			for _, g := range list.Items {
				ids = append(ids, g.ID)
			}
		}
	}
	return ids
}

// selectedInOrderLocked returns the selected ids in collection order, so the
// "first selected item" is well defined for the completed toggle.
func (m *Manager) selectedInOrderLocked() []string {
	ordered := make([]string, 0, len(m.selection.ids))
	for _, id := range m.scopedIDsLocked() {
		if _, ok := m.selection.ids[id]; ok {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

// bulkOp runs one selection-scoped operation as a single history entry and
// save trigger, then always ends selection mode. Selection is a one-shot
// batch gesture, never a persistent session.
func (m *Manager) bulkOp(allowed []SelectionType, minSelected int, build func(ids []string) (string, func(organizer.AppData) organizer.AppData)) *ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.selection.active {
		return nil
	}
	scopeOK := false
	for _, t := range allowed {
		if m.selection.typ == t {
			scopeOK = true
		}
	}
	ids := m.selectedInOrderLocked()
	if !scopeOK || len(ids) < minSelected {
		return nil
	}

	message, transform := build(ids)
	res, _ := m.performLocked(message, func(d organizer.AppData) (organizer.AppData, error) {
		return transform(d), nil
	})
	m.selection = selectionState{}
	return res
}

var allScopes = []SelectionType{SelectTodos, SelectShopping, SelectNotes, SelectCustom}

// DeleteSelectedItems removes every selected item and scrubs project links.
func (m *Manager) DeleteSelectedItems() *ActionResult {
	typ := m.selectionTypeSnapshot()
	listID := m.selectionListSnapshot()
	return m.bulkOp(allScopes, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Deleted %d selected item(s)", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				switch typ {
				case SelectTodos:
					d = organizer.DeleteTodo(d, id)
				case SelectShopping:
					d = organizer.DeleteShoppingItem(d, id)
				case SelectNotes:
					d = organizer.DeleteNote(d, id)
				case SelectCustom:
					d = organizer.DeleteCustomItem(d, listID, id)
				}
			}
			return d
		}
	})
}

// ToggleSelectedItemsCompleted samples the FIRST selected item's completed
// flag and sets every selected item to the opposite of that value. This is
// deliberately not a per-item toggle; a mixed-state selection converges on
// one value determined by the sampled item.
func (m *Manager) ToggleSelectedItemsCompleted() *ActionResult {
	typ := m.selectionTypeSnapshot()
	listID := m.selectionListSnapshot()
	return m.bulkOp([]SelectionType{SelectTodos, SelectShopping, SelectCustom}, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Toggled %d selected item(s)", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			target := !m.firstSelectedCompleted(d, typ, listID, ids[0])
			for _, id := range ids {
				switch typ {
				case SelectTodos:
					d = organizer.UpdateTodo(d, id, func(t organizer.TodoItem) organizer.TodoItem {
						t.Completed = target
						return t
					})
				case SelectShopping:
					d = organizer.UpdateShoppingItem(d, id, func(s organizer.ShoppingItem) organizer.ShoppingItem {
						s.Completed = target
						return s
					})
				case SelectCustom:
					d = organizer.UpdateCustomItem(d, listID, id, func(g organizer.GenericItem) organizer.GenericItem {
						g.Completed = target
						return g
					})
				}
			}
			return d
		}
	})
}

func (m *Manager) firstSelectedCompleted(d organizer.AppData, typ SelectionType, listID, id string) bool {
	switch typ {
	case SelectTodos:
		if t, ok := organizer.FindTodo(d, id); ok {
			return t.Completed
		}
	case SelectShopping:
		if s, ok := organizer.FindShoppingItem(d, id); ok {
			return s.Completed
		}
	case SelectCustom:
		if list, ok := organizer.FindCustomList(d, listID); ok {
			for _, g := range list.Items {
				if g.ID == id {
					return g.Completed
				}
			}
		}
	}
	return false
}

// LinkSelectedItemsToProject links every selected item to the project,
// moving each out of any project it previously belonged to.
func (m *Manager) LinkSelectedItemsToProject(projectID string) *ActionResult {
	m.mu.Lock()
	_, projectExists := organizer.FindProject(m.doc, projectID)
	m.mu.Unlock()
	if !projectExists {
		return nil
	}

	refFor := m.selectionRefSnapshot()
	return m.bulkOp(allScopes, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Linked %d item(s) to project", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				d = organizer.LinkItemToProject(d, refFor(id), projectID)
			}
			return d
		}
	})
}

// MoveSelectedItems re-creates the selected items in the target collection
// and removes them from the source, scrubbing and re-establishing project
// links along the way.
func (m *Manager) MoveSelectedItems(target SelectionType, targetListID string) *ActionResult {
	typ := m.selectionTypeSnapshot()
	listID := m.selectionListSnapshot()
	if target == typ && targetListID == listID {
		return nil
	}
	return m.bulkOp(allScopes, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Moved %d item(s)", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				text, completed, projectID, found := sourceItem(d, typ, listID, id)
				if !found {
					continue
				}
				switch typ {
				case SelectTodos:
					d = organizer.DeleteTodo(d, id)
				case SelectShopping:
					d = organizer.DeleteShoppingItem(d, id)
				case SelectNotes:
					d = organizer.DeleteNote(d, id)
				case SelectCustom:
					d = organizer.DeleteCustomItem(d, listID, id)
				}
				d = insertMoved(d, target, targetListID, text, completed, projectID)
			}
			return d
		}
	})
}

func sourceItem(d organizer.AppData, typ SelectionType, listID, id string) (text string, completed bool, projectID string, found bool) {
	switch typ {
	case SelectTodos:
		if t, ok := organizer.FindTodo(d, id); ok {
			return t.Task, t.Completed, t.ProjectID, true
		}
	case SelectShopping:
		if s, ok := organizer.FindShoppingItem(d, id); ok {
			return s.Item, s.Completed, s.ProjectID, true
		}
	case SelectNotes:
		if n, ok := organizer.FindNote(d, id); ok {
			return n.Title, false, n.ProjectID, true
		}
	case SelectCustom:
		if list, ok := organizer.FindCustomList(d, listID); ok {
			for _, g := range list.Items {
				if g.ID == id {
					return g.Text, g.Completed, g.ProjectID, true
				}
			}
		}
	}
	return "", false, "", false
}

func insertMoved(d organizer.AppData, target SelectionType, targetListID, text string, completed bool, projectID string) organizer.AppData {
	switch target {
	case SelectTodos:
		return organizer.InsertTodo(d, organizer.TodoItem{
			ID: util.NewID("todo"), Task: text, Completed: completed,
			Priority: organizer.PriorityMedium, ProjectID: projectID,
		})
	case SelectShopping:
		return organizer.InsertShoppingItem(d, organizer.ShoppingItem{
			ID: util.NewID("shop"), Item: text, Completed: completed, ProjectID: projectID,
		})
	case SelectNotes:
		return organizer.InsertNote(d, organizer.NoteItem{
			ID: util.NewID("note"), Title: text, History: []organizer.NoteRevision{}, ProjectID: projectID,
		})
	case SelectCustom:
		return organizer.InsertCustomItem(d, targetListID, organizer.GenericItem{
			ID: util.NewID("item"), Text: text, Completed: completed, ProjectID: projectID,
		})
	}
	return d
}

// SetSelectedItemsPriority applies one priority to every selected todo.
func (m *Manager) SetSelectedItemsPriority(priority organizer.Priority) *ActionResult {
	return m.bulkOp([]SelectionType{SelectTodos}, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Set priority %s on %d todo(s)", priority, len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				d = organizer.UpdateTodo(d, id, func(t organizer.TodoItem) organizer.TodoItem {
					t.Priority = priority
					return t
				})
			}
			return d
		}
	})
}

// SetSelectedItemsDueDate applies one due date (or clears it) on every
// selected todo.
func (m *Manager) SetSelectedItemsDueDate(due *time.Time) *ActionResult {
	return m.bulkOp([]SelectionType{SelectTodos}, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Set due date on %d todo(s)", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				d = organizer.UpdateTodo(d, id, func(t organizer.TodoItem) organizer.TodoItem {
					t.DueDate = due
					return t
				})
			}
			return d
		}
	})
}

// SetSelectedShoppingItemsStore applies one store label to every selected
// shopping item.
func (m *Manager) SetSelectedShoppingItemsStore(store string) *ActionResult {
	return m.bulkOp([]SelectionType{SelectShopping}, 1, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Set store %q on %d item(s)", store, len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			for _, id := range ids {
				d = organizer.UpdateShoppingItem(d, id, func(s organizer.ShoppingItem) organizer.ShoppingItem {
					s.Store = store
					return s
				})
			}
			return d
		}
	})
}

// MergeSelectedNotes concatenates the selected notes into one new note with
// an <hr> separator, removes the originals and relinks the project index to
// the merged note. Requires at least two selected notes.
func (m *Manager) MergeSelectedNotes() *ActionResult {
	return m.bulkOp([]SelectionType{SelectNotes}, 2, func(ids []string) (string, func(organizer.AppData) organizer.AppData) {
		msg := fmt.Sprintf("Merged %d notes", len(ids))
		return msg, func(d organizer.AppData) organizer.AppData {
			var parts []string
			title := ""
			projectID := ""
			for _, id := range ids {
				n, ok := organizer.FindNote(d, id)
				if !ok {
					continue
				}
				if title == "" {
					title = n.Title
				}
				if projectID == "" {
					projectID = n.ProjectID
				}
				parts = append(parts, n.Content)
			}
			for _, id := range ids {
				d = organizer.DeleteNote(d, id)
			}
			merged := organizer.NoteItem{
				ID:      util.NewID("note"),
				Title:   title,
				Content: strings.Join(parts, "<hr>"),
				History: []organizer.NoteRevision{},
			}
			d = organizer.InsertNote(d, merged)
			if projectID != "" {
				d = organizer.LinkItemToProject(d, organizer.ItemRef{Type: organizer.ItemNote, ID: merged.ID}, projectID)
			}
			return d
		}
	})
}

func (m *Manager) selectionTypeSnapshot() SelectionType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.typ
}

func (m *Manager) selectionListSnapshot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.listID
}

func (m *Manager) selectionRefSnapshot() func(id string) organizer.ItemRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	typ := m.selection.typ
	listID := m.selection.listID
	return func(id string) organizer.ItemRef {
		switch typ {
		case SelectTodos:
			return organizer.ItemRef{Type: organizer.ItemTodo, ID: id}
		case SelectShopping:
			return organizer.ItemRef{Type: organizer.ItemShopping, ID: id}
		case SelectNotes:
			return organizer.ItemRef{Type: organizer.ItemNote, ID: id}
		default:
			return organizer.ItemRef{Type: organizer.ItemCustom, ID: id, ListID: listID}
		}
	}
}
