package organizer

import "time"

// Collection transforms. Each returns a new document value with the touched
// collection rebuilt; deletes also scrub the item from every project index
// so the reciprocity invariant holds through any sequence of operations.

func InsertTodo(d AppData, t TodoItem) AppData {
	todos := make([]TodoItem, 0, len(d.Todos)+1)
	todos = append(todos, t)
	todos = append(todos, d.Todos...)
	d.Todos = todos
	if t.ProjectID != "" {
		d = LinkItemToProject(d, ItemRef{Type: ItemTodo, ID: t.ID}, t.ProjectID)
	}
	return d
}

func UpdateTodo(d AppData, id string, fn func(TodoItem) TodoItem) AppData {
	todos := make([]TodoItem, len(d.Todos))
	for i, t := range d.Todos {
		if t.ID == id {
			t = fn(t)
		}
		todos[i] = t
	}
	d.Todos = todos
	return d
}

func DeleteTodo(d AppData, id string) AppData {
	todos := make([]TodoItem, 0, len(d.Todos))
	for _, t := range d.Todos {
		if t.ID != id {
			todos = append(todos, t)
		}
	}
	d.Todos = todos
	return ScrubItemFromProjects(d, ItemRef{Type: ItemTodo, ID: id})
}

func InsertShoppingItem(d AppData, s ShoppingItem) AppData {
	items := make([]ShoppingItem, 0, len(d.ShoppingList)+1)
	items = append(items, s)
	items = append(items, d.ShoppingList...)
	d.ShoppingList = items
	if s.ProjectID != "" {
		d = LinkItemToProject(d, ItemRef{Type: ItemShopping, ID: s.ID}, s.ProjectID)
	}
	return d
}

func UpdateShoppingItem(d AppData, id string, fn func(ShoppingItem) ShoppingItem) AppData {
	items := make([]ShoppingItem, len(d.ShoppingList))
	for i, s := range d.ShoppingList {
		if s.ID == id {
			s = fn(s)
		}
		items[i] = s
	}
	d.ShoppingList = items
	return d
}

func DeleteShoppingItem(d AppData, id string) AppData {
	items := make([]ShoppingItem, 0, len(d.ShoppingList))
	for _, s := range d.ShoppingList {
		if s.ID != id {
			items = append(items, s)
		}
	}
	d.ShoppingList = items
	return ScrubItemFromProjects(d, ItemRef{Type: ItemShopping, ID: id})
}

func InsertNote(d AppData, n NoteItem) AppData {
	if n.History == nil {
		n.History = []NoteRevision{}
	}
	notes := make([]NoteItem, 0, len(d.Notes)+1)
	notes = append(notes, n)
	notes = append(notes, d.Notes...)
	d.Notes = notes
	if n.ProjectID != "" {
		d = LinkItemToProject(d, ItemRef{Type: ItemNote, ID: n.ID}, n.ProjectID)
	}
	return d
}

// UpdateNoteContent replaces a note's content and records the previous
// content in its revision log.
func UpdateNoteContent(d AppData, id, title, content string, now time.Time) AppData {
	notes := make([]NoteItem, len(d.Notes))
	for i, n := range d.Notes {
		if n.ID == id {
			history := make([]NoteRevision, 0, len(n.History)+1)
			history = append(history, n.History...)
			history = append(history, NoteRevision{Timestamp: now, Content: n.Content})
			n.History = history
			n.Title = title
			n.Content = content
		}
		notes[i] = n
	}
	d.Notes = notes
	return d
}

func DeleteNote(d AppData, id string) AppData {
	notes := make([]NoteItem, 0, len(d.Notes))
	for _, n := range d.Notes {
		if n.ID != id {
			notes = append(notes, n)
		}
	}
	d.Notes = notes
	return ScrubItemFromProjects(d, ItemRef{Type: ItemNote, ID: id})
}

func InsertCustomList(d AppData, l CustomList) AppData {
	if l.Items == nil {
		l.Items = []GenericItem{}
	}
	lists := make([]CustomList, 0, len(d.CustomLists)+1)
	lists = append(lists, d.CustomLists...)
	lists = append(lists, l)
	d.CustomLists = lists
	return d
}

func UpdateCustomList(d AppData, listID string, fn func(CustomList) CustomList) AppData {
	lists := make([]CustomList, len(d.CustomLists))
	for i, l := range d.CustomLists {
		if l.ID == listID {
			l = fn(l)
		}
		lists[i] = l
	}
	d.CustomLists = lists
	return d
}

// DeleteCustomList removes the list and scrubs every contained item from the
// project indexes.
func DeleteCustomList(d AppData, listID string) AppData {
	lists := make([]CustomList, 0, len(d.CustomLists))
	for _, l := range d.CustomLists {
		if l.ID != listID {
			lists = append(lists, l)
			continue
		}
		for _, item := range l.Items {
			d = ScrubItemFromProjects(d, ItemRef{Type: ItemCustom, ID: item.ID, ListID: listID})
		}
	}
	d.CustomLists = lists
	return d
}

func InsertCustomItem(d AppData, listID string, item GenericItem) AppData {
	lists := make([]CustomList, len(d.CustomLists))
	for i, l := range d.CustomLists {
		if l.ID == listID {
			items := make([]GenericItem, 0, len(l.Items)+1)
			items = append(items, item)
			items = append(items, l.Items...)
			l.Items = items
		}
		lists[i] = l
	}
	d.CustomLists = lists
	if item.ProjectID != "" {
		d = LinkItemToProject(d, ItemRef{Type: ItemCustom, ID: item.ID, ListID: listID}, item.ProjectID)
	}
	return d
}

func UpdateCustomItem(d AppData, listID, itemID string, fn func(GenericItem) GenericItem) AppData {
	lists := make([]CustomList, len(d.CustomLists))
	for i, l := range d.CustomLists {
		if l.ID == listID {
			items := make([]GenericItem, len(l.Items))
			for j, g := range l.Items {
				if g.ID == itemID {
					g = fn(g)
				}
				items[j] = g
			}
			l.Items = items
		}
		lists[i] = l
	}
	d.CustomLists = lists
	return d
}

func DeleteCustomItem(d AppData, listID, itemID string) AppData {
	lists := make([]CustomList, len(d.CustomLists))
	for i, l := range d.CustomLists {
		if l.ID == listID {
			items := make([]GenericItem, 0, len(l.Items))
			for _, g := range l.Items {
				if g.ID != itemID {
					items = append(items, g)
				}
			}
			l.Items = items
		}
		lists[i] = l
	}
	d.CustomLists = lists
	return ScrubItemFromProjects(d, ItemRef{Type: ItemCustom, ID: itemID, ListID: listID})
}

func InsertProject(d AppData, p Project) AppData {
	projects := make([]Project, 0, len(d.Projects)+1)
	projects = append(projects, d.Projects...)
	projects = append(projects, p)
	d.Projects = projects
	return d
}

func UpdateProject(d AppData, id string, fn func(Project) Project) AppData {
	projects := make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		if p.ID == id {
			p = fn(p)
		}
		projects[i] = p
	}
	d.Projects = projects
	return d
}

// FindTodo returns the todo with the given id, if present.
func FindTodo(d AppData, id string) (TodoItem, bool) {
	for _, t := range d.Todos {
		if t.ID == id {
			return t, true
		}
	}
	return TodoItem{}, false
}

func FindShoppingItem(d AppData, id string) (ShoppingItem, bool) {
	for _, s := range d.ShoppingList {
		if s.ID == id {
			return s, true
		}
	}
	return ShoppingItem{}, false
}

func FindNote(d AppData, id string) (NoteItem, bool) {
	for _, n := range d.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return NoteItem{}, false
}

func FindCustomList(d AppData, id string) (CustomList, bool) {
	for _, l := range d.CustomLists {
		if l.ID == id {
			return l, true
		}
	}
	return CustomList{}, false
}

func FindProject(d AppData, id string) (Project, bool) {
	for _, p := range d.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}
