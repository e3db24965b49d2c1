package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"organizer/api/internal/organizer"
	"organizer/api/internal/state"
	"organizer/api/internal/util"
)

// errItemNotFound aborts a checked transform when the addressed item is gone.
// Transforms run against the live document, so existence is checked inside
// the action, not before it.
var errItemNotFound = domainError(http.StatusNotFound, "NOT_FOUND", "Item not found", nil)

type TodoInput struct {
	Task      string             `json:"task"`
	Priority  organizer.Priority `json:"priority"`
	DueDate   *time.Time         `json:"dueDate"`
	ProjectID string             `json:"projectId"`
}

type TodoPatch struct {
	Task         *string              `json:"task"`
	Priority     *organizer.Priority  `json:"priority"`
	DueDate      *time.Time           `json:"dueDate"`
	ClearDueDate bool                 `json:"clearDueDate"`
	Completed    *bool                `json:"completed"`
	Subtasks     *[]organizer.Subtask `json:"subtasks"`
}

type ShoppingInput struct {
	Item      string `json:"item"`
	Quantity  string `json:"quantity"`
	Store     string `json:"store"`
	ProjectID string `json:"projectId"`
}

type ShoppingPatch struct {
	Item      *string `json:"item"`
	Quantity  *string `json:"quantity"`
	Store     *string `json:"store"`
	Completed *bool   `json:"completed"`
}

type NoteInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ProjectID string `json:"projectId"`
}

type CustomListInput struct {
	Title  string                      `json:"title"`
	Fields []organizer.CustomListField `json:"fields"`
}

type CustomItemInput struct {
	Text      string            `json:"text"`
	Fields    map[string]string `json:"fields"`
	ProjectID string            `json:"projectId"`
}

type CustomItemPatch struct {
	Text      *string           `json:"text"`
	Fields    map[string]string `json:"fields"`
	Completed *bool             `json:"completed"`
}

type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ProjectPatch struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	IsHiddenInMainView *bool    `json:"isHiddenInMainView"`
	HiddenItemTypes    []string `json:"hiddenItemTypes"`
}

func (s *Service) actionPayload(m *state.Manager, message string) map[string]any {
	return map[string]any{
		"message":  message,
		"document": m.Document(),
	}
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" is required", nil)
	}
	return nil
}

// Todos

func (s *Service) AddTodo(ctx context.Context, session Session, input TodoInput) (map[string]any, error) {
	if err := requireText("task", input.Task); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	todo := organizer.TodoItem{
		ID:        util.NewID("todo"),
		Task:      strings.TrimSpace(input.Task),
		Priority:  input.Priority,
		DueDate:   input.DueDate,
		ProjectID: input.ProjectID,
	}
	if todo.Priority == "" {
		todo.Priority = organizer.PriorityMedium
	}
	res := m.PerformAction(fmt.Sprintf("Added todo %q", todo.Task), func(d organizer.AppData) organizer.AppData {
		return organizer.InsertTodo(d, todo)
	})
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) UpdateTodo(ctx context.Context, session Session, id string, patch TodoPatch) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Updated todo", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindTodo(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateTodo(d, id, func(t organizer.TodoItem) organizer.TodoItem {
			if patch.Task != nil {
				t.Task = *patch.Task
			}
			if patch.Priority != nil {
				t.Priority = *patch.Priority
			}
			if patch.DueDate != nil {
				t.DueDate = patch.DueDate
			}
			if patch.ClearDueDate {
				t.DueDate = nil
			}
			if patch.Completed != nil {
				t.Completed = *patch.Completed
			}
			if patch.Subtasks != nil {
				t.Subtasks = *patch.Subtasks
			}
			return t
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) DeleteTodo(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted todo", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindTodo(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteTodo(d, id), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) ToggleTodo(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	todo, ok := organizer.FindTodo(m.Document(), id)
	if !ok {
		return nil, errItemNotFound
	}
	message := fmt.Sprintf("Completed todo %q", todo.Task)
	if todo.Completed {
		message = fmt.Sprintf("Reopened todo %q", todo.Task)
	}
	_, err = m.PerformActionChecked(message, func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindTodo(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateTodo(d, id, func(t organizer.TodoItem) organizer.TodoItem {
			t.Completed = !t.Completed
			return t
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, message), nil
}

// Shopping list

func (s *Service) AddShoppingItem(ctx context.Context, session Session, input ShoppingInput) (map[string]any, error) {
	if err := requireText("item", input.Item); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	item := organizer.ShoppingItem{
		ID:        util.NewID("shop"),
		Item:      strings.TrimSpace(input.Item),
		Quantity:  input.Quantity,
		Store:     input.Store,
		ProjectID: input.ProjectID,
	}
	res := m.PerformAction(fmt.Sprintf("Added shopping item %q", item.Item), func(d organizer.AppData) organizer.AppData {
		return organizer.InsertShoppingItem(d, item)
	})
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) UpdateShoppingItem(ctx context.Context, session Session, id string, patch ShoppingPatch) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Updated shopping item", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindShoppingItem(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateShoppingItem(d, id, func(item organizer.ShoppingItem) organizer.ShoppingItem {
			if patch.Item != nil {
				item.Item = *patch.Item
			}
			if patch.Quantity != nil {
				item.Quantity = *patch.Quantity
			}
			if patch.Store != nil {
				item.Store = *patch.Store
			}
			if patch.Completed != nil {
				item.Completed = *patch.Completed
			}
			return item
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) DeleteShoppingItem(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted shopping item", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindShoppingItem(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteShoppingItem(d, id), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) ToggleShoppingItem(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	item, ok := organizer.FindShoppingItem(m.Document(), id)
	if !ok {
		return nil, errItemNotFound
	}
	message := fmt.Sprintf("Checked off %q", item.Item)
	if item.Completed {
		message = fmt.Sprintf("Unchecked %q", item.Item)
	}
	_, err = m.PerformActionChecked(message, func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindShoppingItem(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateShoppingItem(d, id, func(item organizer.ShoppingItem) organizer.ShoppingItem {
			item.Completed = !item.Completed
			return item
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, message), nil
}

// Notes

func (s *Service) AddNote(ctx context.Context, session Session, input NoteInput) (map[string]any, error) {
	if err := requireText("title", input.Title); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	note := organizer.NoteItem{
		ID:        util.NewID("note"),
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		History:   []organizer.NoteRevision{},
		ProjectID: input.ProjectID,
	}
	res := m.PerformAction(fmt.Sprintf("Added note %q", note.Title), func(d organizer.AppData) organizer.AppData {
		return organizer.InsertNote(d, note)
	})
	return s.actionPayload(m, res.Message), nil
}

// UpdateNote rewrites a note's title and content; the previous content is
// pushed onto the note's revision log.
func (s *Service) UpdateNote(ctx context.Context, session Session, id, title, content string) (map[string]any, error) {
	if err := requireText("title", title); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked(fmt.Sprintf("Updated note %q", title), func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindNote(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateNoteContent(d, id, title, content, time.Now()), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) DeleteNote(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted note", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindNote(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteNote(d, id), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

// Custom lists

func (s *Service) AddCustomList(ctx context.Context, session Session, input CustomListInput) (map[string]any, error) {
	if err := requireText("title", input.Title); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	list := organizer.CustomList{
		ID:     util.NewID("list"),
		Title:  title,
		Fields: input.Fields,
		Items:  []organizer.GenericItem{},
	}
	res, err := m.PerformActionChecked(fmt.Sprintf("Created list %q", title), func(d organizer.AppData) (organizer.AppData, error) {
		if organizer.HasCustomListTitle(d, title) {
			return d, domainError(http.StatusConflict, "DUPLICATE_LIST", "A list with this title already exists", nil)
		}
		return organizer.InsertCustomList(d, list), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) RenameCustomList(ctx context.Context, session Session, listID, title string) (map[string]any, error) {
	if err := requireText("title", title); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(title)
	res, err := m.PerformActionChecked(fmt.Sprintf("Renamed list to %q", trimmed), func(d organizer.AppData) (organizer.AppData, error) {
		current, ok := organizer.FindCustomList(d, listID)
		if !ok {
			return d, errItemNotFound
		}
		if !strings.EqualFold(current.Title, trimmed) && organizer.HasCustomListTitle(d, trimmed) {
			return d, domainError(http.StatusConflict, "DUPLICATE_LIST", "A list with this title already exists", nil)
		}
		return organizer.UpdateCustomList(d, listID, func(l organizer.CustomList) organizer.CustomList {
			l.Title = trimmed
			return l
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) DeleteCustomList(ctx context.Context, session Session, listID string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted list", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindCustomList(d, listID); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteCustomList(d, listID), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) AddCustomItem(ctx context.Context, session Session, listID string, input CustomItemInput) (map[string]any, error) {
	if err := requireText("text", input.Text); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	item := organizer.GenericItem{
		ID:        util.NewID("item"),
		Text:      strings.TrimSpace(input.Text),
		Fields:    input.Fields,
		ProjectID: input.ProjectID,
	}
	res, err := m.PerformActionChecked(fmt.Sprintf("Added %q", item.Text), func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindCustomList(d, listID); !ok {
			return d, errItemNotFound
		}
		return organizer.InsertCustomItem(d, listID, item), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) UpdateCustomItem(ctx context.Context, session Session, listID, itemID string, patch CustomItemPatch) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Updated item", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := findCustomItem(d, listID, itemID); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateCustomItem(d, listID, itemID, func(g organizer.GenericItem) organizer.GenericItem {
			if patch.Text != nil {
				g.Text = *patch.Text
			}
			if patch.Fields != nil {
				g.Fields = patch.Fields
			}
			if patch.Completed != nil {
				g.Completed = *patch.Completed
			}
			return g
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) DeleteCustomItem(ctx context.Context, session Session, listID, itemID string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted item", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := findCustomItem(d, listID, itemID); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteCustomItem(d, listID, itemID), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) ToggleCustomItem(ctx context.Context, session Session, listID, itemID string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	current, ok := findCustomItem(m.Document(), listID, itemID)
	if !ok {
		return nil, errItemNotFound
	}
	message := fmt.Sprintf("Completed %q", current.Text)
	if current.Completed {
		message = fmt.Sprintf("Reopened %q", current.Text)
	}
	_, err = m.PerformActionChecked(message, func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := findCustomItem(d, listID, itemID); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateCustomItem(d, listID, itemID, func(g organizer.GenericItem) organizer.GenericItem {
			g.Completed = !g.Completed
			return g
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, message), nil
}

// Projects

func (s *Service) AddProject(ctx context.Context, session Session, input ProjectInput) (map[string]any, error) {
	if err := requireText("title", input.Title); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	project := organizer.Project{
		ID:          util.NewID("proj"),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
	}
	res := m.PerformAction(fmt.Sprintf("Created project %q", project.Title), func(d organizer.AppData) organizer.AppData {
		return organizer.InsertProject(d, project)
	})
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, id string, patch ProjectPatch) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Updated project", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindProject(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.UpdateProject(d, id, func(p organizer.Project) organizer.Project {
			if patch.Title != nil {
				p.Title = *patch.Title
			}
			if patch.Description != nil {
				p.Description = *patch.Description
			}
			if patch.IsHiddenInMainView != nil {
				p.IsHiddenInMainView = *patch.IsHiddenInMainView
			}
			if patch.HiddenItemTypes != nil {
				p.HiddenItemTypes = patch.HiddenItemTypes
			}
			return p
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

// DeleteProject removes the project and clears every linked item's
// back-reference; the items themselves survive.
func (s *Service) DeleteProject(ctx context.Context, session Session, id string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Deleted project", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindProject(d, id); !ok {
			return d, errItemNotFound
		}
		return organizer.DeleteProject(d, id), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

// Project linking

func (s *Service) LinkItem(ctx context.Context, session Session, ref organizer.ItemRef, projectID string) (map[string]any, error) {
	if err := requireText("projectId", projectID); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Linked item to project", func(d organizer.AppData) (organizer.AppData, error) {
		if _, ok := organizer.FindProject(d, projectID); !ok {
			return d, domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
		}
		if !itemExists(d, ref) {
			return d, errItemNotFound
		}
		return organizer.LinkItemToProject(d, ref, projectID), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func (s *Service) UnlinkItem(ctx context.Context, session Session, ref organizer.ItemRef) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res, err := m.PerformActionChecked("Unlinked item from project", func(d organizer.AppData) (organizer.AppData, error) {
		if !itemExists(d, ref) {
			return d, errItemNotFound
		}
		return organizer.UnlinkItemFromProject(d, ref), nil
	})
	if err != nil {
		return nil, err
	}
	return s.actionPayload(m, res.Message), nil
}

func findCustomItem(d organizer.AppData, listID, itemID string) (organizer.GenericItem, bool) {
	list, ok := organizer.FindCustomList(d, listID)
	if !ok {
		return organizer.GenericItem{}, false
	}
	for _, g := range list.Items {
		if g.ID == itemID {
			return g, true
		}
	}
	return organizer.GenericItem{}, false
}

func itemExists(d organizer.AppData, ref organizer.ItemRef) bool {
	switch ref.Type {
	case organizer.ItemTodo:
		_, ok := organizer.FindTodo(d, ref.ID)
		return ok
	case organizer.ItemShopping:
		_, ok := organizer.FindShoppingItem(d, ref.ID)
		return ok
	case organizer.ItemNote:
		_, ok := organizer.FindNote(d, ref.ID)
		return ok
	case organizer.ItemCustom:
		_, ok := findCustomItem(d, ref.ListID, ref.ID)
		return ok
	}
	return false
}

// Addition queue

func (s *Service) ProcessQueue(ctx context.Context, session Session, queue []state.QueuedItem, forceFirst bool) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.ProcessAdditionQueue(queue, forceFirst)
	return s.queuePayload(m, res), nil
}

func (s *Service) ConfirmDuplicate(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.ConfirmDuplicateAdd()
	return s.queuePayload(m, res), nil
}

func (s *Service) SkipDuplicate(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	res := m.SkipDuplicateAndContinue()
	return s.queuePayload(m, res), nil
}

func (s *Service) ClearDuplicate(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	m.ClearDuplicateConfirmation()
	return map[string]any{"ok": true}, nil
}

func (s *Service) PendingDuplicate(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pending": m.PendingDuplicate()}, nil
}

func (s *Service) queuePayload(m *state.Manager, res state.QueueResult) map[string]any {
	messages := res.Messages
	if messages == nil {
		messages = []string{}
	}
	return map[string]any{
		"messages": messages,
		"pending":  res.Pending,
		"document": m.Document(),
	}
}

// Selection mode and bulk operations

var selectionTypes = map[state.SelectionType]struct{}{
	state.SelectTodos:    {},
	state.SelectShopping: {},
	state.SelectNotes:    {},
	state.SelectCustom:   {},
}

func (s *Service) StartSelection(ctx context.Context, session Session, typ state.SelectionType, listID string) (map[string]any, error) {
	if _, ok := selectionTypes[typ]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be todos, shopping, notes or custom", nil)
	}
	if typ == state.SelectCustom && strings.TrimSpace(listID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "listId is required for custom selections", nil)
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	m.StartSelectionMode(typ, listID)
	return map[string]any{"selection": m.Selection()}, nil
}

func (s *Service) ToggleSelected(ctx context.Context, session Session, id string) (map[string]any, error) {
	if err := requireText("id", id); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	m.ToggleItemSelected(id)
	return map[string]any{"selection": m.Selection()}, nil
}

func (s *Service) SelectAll(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	m.SelectAllInList()
	return map[string]any{"selection": m.Selection()}, nil
}

func (s *Service) EndSelection(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	m.EndSelectionMode()
	return map[string]any{"selection": m.Selection()}, nil
}

func (s *Service) SelectionState(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"selection": m.Selection()}, nil
}

// errInvalidSelection covers every bulk no-op: selection not active, wrong
// scope for the operation, or too few items selected.
var errInvalidSelection = domainError(http.StatusConflict, "INVALID_SELECTION", "Selection is empty or does not allow this operation", nil)

func (s *Service) bulkPayload(m *state.Manager, res *state.ActionResult) (map[string]any, error) {
	if res == nil {
		return nil, errInvalidSelection
	}
	return map[string]any{
		"message":   res.Message,
		"document":  m.Document(),
		"selection": m.Selection(),
	}, nil
}

func (s *Service) BulkDelete(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.DeleteSelectedItems())
}

func (s *Service) BulkToggle(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.ToggleSelectedItemsCompleted())
}

func (s *Service) BulkLink(ctx context.Context, session Session, projectID string) (map[string]any, error) {
	if err := requireText("projectId", projectID); err != nil {
		return nil, err
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if _, ok := organizer.FindProject(m.Document(), projectID); !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Project not found", nil)
	}
	return s.bulkPayload(m, m.LinkSelectedItemsToProject(projectID))
}

func (s *Service) BulkMove(ctx context.Context, session Session, target state.SelectionType, targetListID string) (map[string]any, error) {
	if _, ok := selectionTypes[target]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "target must be todos, shopping, notes or custom", nil)
	}
	if target == state.SelectCustom && strings.TrimSpace(targetListID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "listId is required for custom targets", nil)
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.MoveSelectedItems(target, targetListID))
}

func (s *Service) BulkSetPriority(ctx context.Context, session Session, priority organizer.Priority) (map[string]any, error) {
	if priority != organizer.PriorityLow && priority != organizer.PriorityMedium && priority != organizer.PriorityHigh {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "priority must be low, medium or high", nil)
	}
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.SetSelectedItemsPriority(priority))
}

func (s *Service) BulkSetDueDate(ctx context.Context, session Session, due *time.Time) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.SetSelectedItemsDueDate(due))
}

func (s *Service) BulkSetStore(ctx context.Context, session Session, store string) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.SetSelectedShoppingItemsStore(store))
}

func (s *Service) BulkMergeNotes(ctx context.Context, session Session) (map[string]any, error) {
	m, err := s.manager(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.bulkPayload(m, m.MergeSelectedNotes())
}
